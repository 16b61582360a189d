// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cursedearth/engine/internal/resource"
)

// FormatVersion is the version of the on-disk entry layout.
const FormatVersion uint32 = 1

var magic = [4]byte{'C', 'E', 'T', 'X'}

// ErrCorrupt is returned for entries that cannot be decoded.
var ErrCorrupt = errors.New("corrupt texture cache entry")

type header struct {
	Magic          [4]byte
	Format         uint32
	TextureVersion uint32
	Width          uint32
	Height         uint32
}

const headerSize = 4 + 4*4

// Encode serializes tex with a little-endian header.
func Encode(tex *resource.Texture) ([]byte, error) {
	if tex.Width < 0 || tex.Height < 0 || len(tex.Pixels) != tex.Width*tex.Height*4 {
		return nil, fmt.Errorf("encode texture %s: invalid %dx%d with %d bytes", tex.Name, tex.Width, tex.Height, len(tex.Pixels))
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(tex.Pixels))
	h := header{
		Magic:          magic,
		Format:         FormatVersion,
		TextureVersion: tex.Version,
		Width:          uint32(tex.Width),
		Height:         uint32(tex.Height),
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("encode texture %s: %w", tex.Name, err)
	}
	buf.Write(tex.Pixels)
	return buf.Bytes(), nil
}

// Decode parses an entry produced by Encode.
func Decode(name string, data []byte) (*resource.Texture, error) {
	var h header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", name, ErrCorrupt)
	}
	if h.Magic != magic {
		return nil, fmt.Errorf("decode texture %s: bad magic: %w", name, ErrCorrupt)
	}
	if h.Format != FormatVersion {
		return nil, fmt.Errorf("decode texture %s: format %d: %w", name, h.Format, ErrCorrupt)
	}
	size := int(h.Width) * int(h.Height) * 4
	if len(data)-headerSize != size {
		return nil, fmt.Errorf("decode texture %s: truncated: %w", name, ErrCorrupt)
	}
	return &resource.Texture{
		Name:    name,
		Version: h.TextureVersion,
		Width:   int(h.Width),
		Height:  int(h.Height),
		Pixels:  append([]byte(nil), data[headerSize:]...),
	}, nil
}
