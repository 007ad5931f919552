// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package fitsio reads and writes single-plane (mono) 2-D FITS images as
// plain float32 arrays. It is a deliberately trimmed-down descendant of
// fits/read.go and fits/fits.go: those carry a full multi-axis, multi-bitpix
// image model with embedded statistics, star lists and alignment
// transforms, none of which this library's PixelBuffer needs. What survives
// here is the same shape -- parse 80-column header cards into typed maps,
// pad to the 2880-byte block grid, walk BITPIX to decide the sample decoder
// -- restricted to NAXIS=2 and the two BITPIX values a detection pipeline
// actually consumes (-32 float and 16 int).
package fitsio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	blockSize  = 2880
	cardSize   = 80
	cardsPerBlock = blockSize / cardSize
)

// Image is a single-plane FITS image: a row-major float32 array plus the
// header keywords read.go would otherwise hand back piecemeal.
type Image struct {
	Width, Height int32
	Data          []float32
	Bitpix        int32
	Exposure      float32
	Extra         map[string]string // header cards not consumed by the fixed fields above
}

// ReadFile opens fileName and parses it as a mono 2-D FITS image.
func ReadFile(fileName string) (*Image, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(bufio.NewReader(f))
}

// Read parses a mono 2-D FITS image from r.
func Read(r io.Reader) (*Image, error) {
	cards, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	img := &Image{Extra: map[string]string{}}
	simple, ok := cards["SIMPLE"]
	if !ok || strings.TrimSpace(simple) != "T" {
		return nil, fmt.Errorf("fitsio: SIMPLE=T missing in header")
	}

	bitpix, err := popInt(cards, "BITPIX")
	if err != nil {
		return nil, err
	}
	img.Bitpix = bitpix
	if bitpix != -32 && bitpix != 16 {
		return nil, fmt.Errorf("fitsio: unsupported BITPIX %d, only -32 and 16 are supported", bitpix)
	}

	naxis, err := popInt(cards, "NAXIS")
	if err != nil {
		return nil, err
	}
	if naxis != 2 {
		return nil, fmt.Errorf("fitsio: only NAXIS=2 mono images are supported, got NAXIS=%d", naxis)
	}
	width, err := popInt(cards, "NAXIS1")
	if err != nil {
		return nil, err
	}
	height, err := popInt(cards, "NAXIS2")
	if err != nil {
		return nil, err
	}
	img.Width, img.Height = width, height

	bzero := popFloatOr(cards, "BZERO", 0)
	bscale := popFloatOr(cards, "BSCALE", 1)
	img.Exposure = popFloatOr(cards, "EXPOSURE", popFloatOr(cards, "EXPTIME", 0))
	for k, v := range cards {
		img.Extra[k] = v
	}

	n := int(width) * int(height)
	img.Data = make([]float32, n)

	switch bitpix {
	case -32:
		raw := make([]byte, n*4)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("fitsio: reading pixel data: %w", err)
		}
		for i := 0; i < n; i++ {
			bits := binary.BigEndian.Uint32(raw[i*4:])
			img.Data[i] = math.Float32frombits(bits)*bscale + bzero
		}
	case 16:
		raw := make([]byte, n*2)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("fitsio: reading pixel data: %w", err)
		}
		for i := 0; i < n; i++ {
			v := int16(binary.BigEndian.Uint16(raw[i*2:]))
			img.Data[i] = float32(v)*bscale + bzero
		}
	}
	return img, nil
}

// readHeader consumes 2880-byte blocks of 80-column cards until END,
// returning every keyword's raw (unparsed, but trimmed) value string.
func readHeader(r io.Reader) (map[string]string, error) {
	cards := map[string]string{}
	block := make([]byte, blockSize)
	done := false
	for !done {
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("fitsio: reading header block: %w", err)
		}
		for i := 0; i < cardsPerBlock; i++ {
			line := string(block[i*cardSize : (i+1)*cardSize])
			keyword := strings.TrimSpace(line[:8])
			if keyword == "END" {
				done = true
				break
			}
			if keyword == "" || keyword == "COMMENT" || keyword == "HISTORY" {
				continue
			}
			if len(line) < 10 || line[8:10] != "= " {
				continue
			}
			value := line[10:]
			if idx := strings.Index(value, "/"); idx >= 0 {
				value = value[:idx]
			}
			cards[keyword] = strings.TrimSpace(value)
		}
	}
	return cards, nil
}

func popInt(cards map[string]string, key string) (int32, error) {
	s, ok := cards[key]
	if !ok {
		return 0, fmt.Errorf("fitsio: header does not contain key %s", key)
	}
	delete(cards, key)
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("fitsio: key %s is not an integer: %s", key, s)
	}
	return int32(v), nil
}

func popFloatOr(cards map[string]string, key string, def float32) float32 {
	s, ok := cards[key]
	if !ok {
		return def
	}
	delete(cards, key)
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.Trim(s, "'")), 32)
	if err != nil {
		return def
	}
	return float32(v)
}

// WriteFile writes img to fileName as a -32 BITPIX mono FITS file.
func WriteFile(fileName string, img *Image) error {
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := Write(w, img); err != nil {
		return err
	}
	return w.Flush()
}

// Write serializes img to w as a -32 BITPIX mono FITS file.
func Write(w io.Writer, img *Image) error {
	var cards []string
	cards = append(cards, formatBoolCard("SIMPLE", true))
	cards = append(cards, formatIntCard("BITPIX", -32))
	cards = append(cards, formatIntCard("NAXIS", 2))
	cards = append(cards, formatIntCard("NAXIS1", img.Width))
	cards = append(cards, formatIntCard("NAXIS2", img.Height))
	if img.Exposure != 0 {
		cards = append(cards, formatFloatCard("EXPOSURE", img.Exposure))
	}
	cards = append(cards, "END")

	if err := writeHeader(w, cards); err != nil {
		return err
	}

	n := len(img.Data)
	raw := make([]byte, n*4)
	for i, v := range img.Data {
		binary.BigEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return writePadding(w, len(raw))
}

func writeHeader(w io.Writer, cards []string) error {
	buf := make([]byte, 0, blockSize)
	for _, c := range cards {
		line := c
		if len(line) < cardSize {
			line += strings.Repeat(" ", cardSize-len(line))
		}
		buf = append(buf, line[:cardSize]...)
	}
	return writePaddedBlock(w, buf)
}

func writePaddedBlock(w io.Writer, buf []byte) error {
	pad := (blockSize - len(buf)%blockSize) % blockSize
	buf = append(buf, repeatByte(' ', pad)...)
	_, err := w.Write(buf)
	return err
}

func writePadding(w io.Writer, n int) error {
	pad := (blockSize - n%blockSize) % blockSize
	if pad == 0 {
		return nil
	}
	_, err := w.Write(repeatByte(0, pad))
	return err
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func formatBoolCard(key string, v bool) string {
	val := "F"
	if v {
		val = "T"
	}
	return fmt.Sprintf("%-8s= %20s", key, val)
}

func formatIntCard(key string, v int32) string {
	return fmt.Sprintf("%-8s= %20d", key, v)
}

func formatFloatCard(key string, v float32) string {
	return fmt.Sprintf("%-8s= %20g", key, v)
}
