package device

import (
	"fmt"
	"image"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	displayWidth  = 128
	displayHeight = 64
)

// NeedleDisplay draws the heading gauge on an SSD1306 OLED.
type NeedleDisplay struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// addressedBus sends every transaction to one address so displays
// strapped to 0x3D work with the stock driver.
type addressedBus struct {
	i2c.BusCloser
	addr uint16
}

func (b addressedBus) Tx(_ uint16, w, r []byte) error {
	return b.BusCloser.Tx(b.addr, w, r)
}

// NewNeedleDisplay opens the display at addr on the named I2C bus. An
// empty bus name picks the first one.
func NewNeedleDisplay(busName string, addr uint16) (*NeedleDisplay, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(addressedBus{BusCloser: bus, addr: addr}, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display at 0x%02X: %w", addr, err)
	}
	return &NeedleDisplay{bus: bus, dev: dev}, nil
}

// Render implements robot.Needle.
func (d *NeedleDisplay) Render(angle float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	img := DrawNeedle(angle)
	return d.dev.Draw(d.dev.Bounds(), img, image.Point{})
}

// Close blanks the display and releases the bus.
func (d *NeedleDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.dev.Halt(); err != nil {
		d.bus.Close()
		return err
	}
	return d.bus.Close()
}

// NeedleCenter and NeedleRadius describe the gauge geometry.
var (
	NeedleCenter = image.Pt(displayWidth/2, displayHeight/2)
	NeedleRadius = min(displayWidth/2, displayHeight/2) - 5
)

// NeedleTip is where the needle ends for angle. Zero points right and
// angles grow clockwise on screen, since y runs down.
func NeedleTip(angle float64) image.Point {
	rad := angle * math.Pi / 180
	return image.Pt(
		NeedleCenter.X+int(float64(NeedleRadius)*math.Cos(rad)),
		NeedleCenter.Y+int(float64(NeedleRadius)*math.Sin(rad)),
	)
}

// DrawNeedle renders the gauge: a circle, a needle from the center at
// angle, and the angle in the corner.
func DrawNeedle(angle float64) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawCircle(img, NeedleCenter, NeedleRadius)
	drawLine(img, NeedleCenter, NeedleTip(angle))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(0, 13),
	}
	drawer.DrawString(fmt.Sprintf("%3.0f", angle))

	return img
}

func setBit(img *image1bit.VerticalLSB, x, y int) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetBit(x, y, image1bit.On)
	}
}

// drawCircle uses the midpoint algorithm.
func drawCircle(img *image1bit.VerticalLSB, c image.Point, r int) {
	x, y, err := r, 0, 1-r
	for x >= y {
		for _, p := range [][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			setBit(img, c.X+p[0], c.Y+p[1])
		}
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// drawLine uses Bresenham's algorithm.
func drawLine(img *image1bit.VerticalLSB, from, to image.Point) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	e := dx + dy
	x, y := from.X, from.Y
	for {
		setBit(img, x, y)
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
