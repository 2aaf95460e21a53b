package views

import (
	"strings"
	"testing"

	qrcode "github.com/skip2/go-qrcode"
)

func TestDecodeQR(t *testing.T) {
	const content = "https://ptlogin2.qq.com/qrlogin?k=0123456789"

	bordered, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		t.Fatal(err)
	}
	png, err := bordered.PNG(4 * len(bordered.Bitmap()))
	if err != nil {
		t.Fatal(err)
	}
	bare, _ := qrcode.New(content, qrcode.Medium)
	bare.DisableBorder = true
	want := bare.Bitmap()

	got, err := decodeQR(png)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d modules per side, want %d", len(got), len(want))
	}
	for y := range want {
		for x := range want[y] {
			if got[y][x] != want[y][x] {
				t.Fatalf("module (%d,%d) = %v, want %v", x, y, got[y][x], want[y][x])
			}
		}
	}
}

func TestDecodeQRUnevenModules(t *testing.T) {
	q, err := qrcode.New("https://ptlogin2.qq.com/qrlogin?k=uneven", qrcode.Low)
	if err != nil {
		t.Fatal(err)
	}
	png, err := q.PNG(4*len(q.Bitmap()) + 13)
	if err != nil {
		t.Fatal(err)
	}
	q.DisableBorder = true
	want := q.Bitmap()

	got, err := decodeQR(png)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d modules per side, want %d", len(got), len(want))
	}
	for y := range want {
		for x := range want[y] {
			if got[y][x] != want[y][x] {
				t.Fatalf("module (%d,%d) = %v, want %v", x, y, got[y][x], want[y][x])
			}
		}
	}
}

func TestDecodeQRRejectsOtherImages(t *testing.T) {
	if _, err := decodeQR([]byte("PNG")); err == nil {
		t.Error("garbage decoded")
	}
}

func TestRenderQR(t *testing.T) {
	grid := make([][]bool, 21)
	for i := range grid {
		grid[i] = make([]bool, 21)
	}
	grid[0][0] = true

	out := renderQR(grid, 2)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	// 25 rows of modules, two per line.
	if len(lines) != 13 {
		t.Fatalf("got %d lines", len(lines))
	}
	// Row 2 (dark module at column 2) shares line 1 with lit row 3.
	if r := []rune(lines[1]); r[2+2] != '▄' || r[2+3] != '█' {
		t.Errorf("line 1 = %q", lines[1])
	}
	if r := []rune(lines[0]); r[2] != '█' {
		t.Errorf("quiet zone not lit: %q", lines[0])
	}
	if r := []rune(lines[12]); r[2] != '▀' {
		t.Errorf("last half line = %q", lines[12])
	}
}
