// Package filetype classifies audio files by their leading bytes,
// independently of the extension they were advertised with.
package filetype

import (
	"bytes"
	"io"
	"os"
)

type Type int

const (
	Unknown Type = iota
	Mp3
	Flac
	Wav
	Aiff
	Aac
	M4a
	Ogg
	Wma
)

var (
	id3Magic  = []byte("ID3")
	flacMagic = []byte("fLaC")
	oggMagic  = []byte("OggS")
	riffMagic = []byte("RIFF")
	aiffMagic = []byte("FORM")
	ftypBox   = []byte("ftyp")
	m4aBrand  = []byte("M4A ")
	asfGUID   = []byte{
		0x30, 0x26, 0xb2, 0x75, 0x8e, 0x66, 0xcf, 0x11,
		0xa6, 0xd9, 0x00, 0xaa, 0x00, 0x62, 0xce, 0x6c,
	}
)

const (
	id3HeaderSize = 10
	sniffSize     = 16
)

var extensions = map[Type]string{
	Mp3:  "mp3",
	Flac: "flac",
	Wav:  "wav",
	Aiff: "aiff",
	Aac:  "aac",
	M4a:  "m4a",
	Ogg:  "ogg",
	Wma:  "wma",
}

// Extension returns the lowercase file extension matching the type,
// without the leading dot, or an empty string for Unknown.
func (t Type) Extension() string {
	return extensions[t]
}

func (t Type) String() string {
	if ext, ok := extensions[t]; ok {
		return ext
	}
	return "unknown"
}

// Detect opens the file at path and classifies it.
// The only error returned is the one raised by opening the file:
// short or garbage content yields Unknown.
func Detect(path string) (Type, error) {
	file, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer file.Close()
	return DetectReader(file), nil
}

// DetectReader classifies the stream read from its current beginning.
// An ID3v2 header, when present, is skipped exactly once before
// any other signature is looked for.
func DetectReader(r io.ReadSeeker) Type {
	if !skipID3(r) {
		return Unknown
	}

	sniff := make([]byte, sniffSize)
	n, _ := io.ReadFull(r, sniff)
	sniff = sniff[:n]

	if len(sniff) < 4 {
		return Unknown
	}
	head := sniff[:4]
	switch {
	case bytes.Equal(head, flacMagic):
		return Flac
	case bytes.Equal(head, oggMagic):
		return Ogg
	case bytes.Equal(head, riffMagic):
		return Wav
	case bytes.Equal(head, aiffMagic):
		return Aiff
	case isMp3Frame(head):
		return Mp3
	case isAdtsFrame(head):
		return Aac
	}

	if len(sniff) < 12 {
		return Unknown
	}
	if bytes.Equal(sniff[4:8], ftypBox) && bytes.Equal(sniff[8:12], m4aBrand) {
		return M4a
	}

	// the sniff starts right after the ID3 skip, so the guid
	// is compared from that same position
	if len(sniff) < 16 {
		return Unknown
	}
	if bytes.Equal(sniff[:16], asfGUID) {
		return Wma
	}
	return Unknown
}

// skipID3 positions r right after an ID3v2 tag, if any,
// or at the beginning of the stream otherwise.
func skipID3(r io.ReadSeeker) bool {
	header := make([]byte, id3HeaderSize)
	n, _ := io.ReadFull(r, header)
	if n < len(id3Magic) || !bytes.Equal(header[:len(id3Magic)], id3Magic) {
		_, err := r.Seek(0, io.SeekStart)
		return err == nil
	}
	if n < id3HeaderSize {
		return false
	}

	_, err := r.Seek(id3HeaderSize+synchsafe(header[6:10]), io.SeekStart)
	return err == nil
}

// synchsafe decodes a 4-byte big-endian integer
// whose bytes only carry their low 7 bits.
func synchsafe(b []byte) int64 {
	return int64(b[0]&0x7f)<<21 | int64(b[1]&0x7f)<<14 | int64(b[2]&0x7f)<<7 | int64(b[3]&0x7f)
}

// MPEG-1 Layer III frame sync: 11 sync bits, version 11, layer 01
func isMp3Frame(b []byte) bool {
	return b[0] == 0xff && b[1]&0xe0 == 0xe0 && b[1]&0x18 == 0x18 && b[1]&0x06 == 0x02
}

// ADTS frame sync: 12 sync bits, MPEG-4 version bit, layer 00
func isAdtsFrame(b []byte) bool {
	return b[0] == 0xff && b[1]&0xf0 == 0xf0 && b[1]&0x08 == 0 && b[1]&0x06 == 0
}
