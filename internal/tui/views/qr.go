package views

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"math"
	"strings"
)

// decodeQR reads the module grid of a QR code image, true for dark
// modules, without the quiet zone. The module count follows from the top
// row of the upper left finder pattern, which is seven modules wide.
func decodeQR(data []byte) ([][]bool, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode qr image: %w", err)
	}
	b := img.Bounds()
	dark := func(x, y int) bool {
		return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 128
	}

	x0, y0, found := 0, 0, false
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if dark(x, y) {
				x0, y0, found = x, y, true
				break
			}
		}
	}
	if !found {
		return nil, errors.New("qr image is blank")
	}

	run := 0
	for x := x0; x < b.Max.X && dark(x, y0); x++ {
		run++
	}
	if run < 7 {
		return nil, fmt.Errorf("no finder pattern at (%d,%d)", x0, y0)
	}

	right := x0
	for x := b.Max.X - 1; x > x0; x-- {
		if dark(x, y0) {
			right = x
			break
		}
	}
	bottom := y0
	for y := b.Max.Y - 1; y > y0; y-- {
		if dark(x0, y) {
			bottom = y
			break
		}
	}
	width, height := right-x0+1, bottom-y0+1
	n := symbolSize(width, run)
	if n < 21 || n != symbolSize(height, run) {
		return nil, fmt.Errorf("qr image is not a square symbol (%dx%d px)", width, height)
	}

	// Encoders may spread rounding over the modules, so sample module
	// centres against the measured symbol width.
	module := float64(width) / float64(n)
	grid := make([][]bool, n)
	for row := range grid {
		grid[row] = make([]bool, n)
		for col := range grid[row] {
			grid[row][col] = dark(x0+int((float64(col)+0.5)*module), y0+int((float64(row)+0.5)*module))
		}
	}
	return grid, nil
}

// symbolSize snaps the module count measured over px pixels to the
// nearest valid QR side, 17+4v modules for version v.
func symbolSize(px, finderRun int) int {
	est := float64(px) * 7 / float64(finderRun)
	return 17 + 4*int(math.Round((est-17)/4))
}

// renderQR draws grid with half blocks, two modules per line, lighting the
// light modules so the code scans on a dark terminal. A quiet zone of
// border modules surrounds it.
func renderQR(grid [][]bool, border int) string {
	n := len(grid)
	size := n + 2*border
	light := func(row, col int) bool {
		row, col = row-border, col-border
		if row < 0 || col < 0 || row >= n || col >= n {
			return true
		}
		return !grid[row][col]
	}

	var sb strings.Builder
	for y := 0; y < size; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < size; x++ {
			top := light(y, x)
			bot := y+1 < size && light(y+1, x)
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
