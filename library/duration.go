package library

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/abema/go-mp4"
	"github.com/go-audio/aiff"
	"github.com/go-audio/wav"
)

var errNoDuration = errors.New("duration not found")

var (
	oggMagic              = []byte("OggS")
	asfHeaderGUID         = []byte{0x30, 0x26, 0xB2, 0x75, 0x8E, 0x66, 0xCF, 0x11, 0xA6, 0xD9, 0x00, 0xAA, 0x00, 0x62, 0xCE, 0x6C}
	asfFilePropertiesGUID = []byte{0xA1, 0xDC, 0xAB, 0x8C, 0x47, 0xA9, 0xCF, 0x11, 0x8E, 0xE4, 0x00, 0xC0, 0x0C, 0x20, 0x53, 0x65}
	adtsSampleRates       = []float64{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}
)

const (
	oggPageHeader  = 27
	oggMaxPage     = 65307
	opusSampleRate = 48000
	adtsFrame      = 1024 // samples per raw data block
	asfObject      = 24
)

// readDuration returns the duration, in seconds, of the audio stream in r,
// decoded according to the file extension ext.
func readDuration(ext string, r io.ReadSeeker) (int, error) {
	switch ext {
	case ".mp3":
		return mp3Duration(r)
	case ".flac":
		return flacDuration(r)
	case ".m4a", ".mp4", ".3gp":
		return mp4Duration(r)
	case ".ogg", ".oga":
		return oggDuration(r)
	case ".wav":
		return wavDuration(r)
	case ".aiff":
		return aiffDuration(r)
	case ".aac":
		return adtsDuration(r)
	case ".wma":
		return asfDuration(r)
	}
	return 0, fmt.Errorf("%w: unsupported extension %s", errNoDuration, ext)
}

func seconds(value float64) int {
	if value < 0 {
		return 0
	}
	return int(math.Round(value))
}

// mp4Duration reads the movie header box.
func mp4Duration(r io.ReadSeeker) (int, error) {
	boxes, err := mp4.ExtractBoxWithPayload(r, nil, mp4.BoxPath{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()})
	if err != nil {
		return 0, err
	}
	if len(boxes) == 0 {
		return 0, fmt.Errorf("%w: missing movie header", errNoDuration)
	}
	mvhd, ok := boxes[0].Payload.(*mp4.Mvhd)
	if !ok || mvhd.Timescale == 0 {
		return 0, fmt.Errorf("%w: invalid movie header", errNoDuration)
	}
	duration := uint64(mvhd.DurationV0)
	if mvhd.GetVersion() == 1 {
		duration = mvhd.DurationV1
	}
	return seconds(float64(duration) / float64(mvhd.Timescale)), nil
}

func wavDuration(r io.ReadSeeker) (int, error) {
	duration, err := wav.NewDecoder(r).Duration()
	if err != nil {
		return 0, err
	}
	return seconds(duration.Seconds()), nil
}

func aiffDuration(r io.ReadSeeker) (int, error) {
	decoder := aiff.NewDecoder(r)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return 0, err
	}
	if decoder.SampleRate == 0 {
		return 0, fmt.Errorf("%w: invalid sample rate", errNoDuration)
	}
	return seconds(float64(decoder.NumSampleFrames) / float64(decoder.SampleRate)), nil
}

// oggDuration takes the sample rate out of the first packet of the logical
// stream (vorbis or opus) and the sample count out of its last granule position.
func oggDuration(r io.ReadSeeker) (int, error) {
	header := make([]byte, oggPageHeader)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}
	if !bytes.Equal(header[:4], oggMagic) {
		return 0, fmt.Errorf("%w: not an ogg stream", errNoDuration)
	}
	serial := binary.LittleEndian.Uint32(header[14:18])

	lacing := make([]byte, header[26])
	if _, err := io.ReadFull(r, lacing); err != nil {
		return 0, err
	}
	size := 0
	for _, segment := range lacing {
		size += int(segment)
		if segment < 255 {
			break
		}
	}
	packet := make([]byte, size)
	if _, err := io.ReadFull(r, packet); err != nil {
		return 0, err
	}

	var rate, skip float64
	switch {
	case len(packet) >= 16 && packet[0] == 1 && string(packet[1:7]) == "vorbis":
		rate = float64(binary.LittleEndian.Uint32(packet[12:16]))
	case len(packet) >= 12 && string(packet[:8]) == "OpusHead":
		rate, skip = opusSampleRate, float64(binary.LittleEndian.Uint16(packet[10:12]))
	default:
		return 0, fmt.Errorf("%w: unsupported ogg codec", errNoDuration)
	}
	if rate == 0 {
		return 0, fmt.Errorf("%w: invalid sample rate", errNoDuration)
	}

	granule, err := oggLastGranule(r, serial)
	if err != nil {
		return 0, err
	}
	return seconds((float64(granule) - skip) / rate), nil
}

func oggLastGranule(r io.ReadSeeker, serial uint32) (uint64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	window := int64(oggMaxPage)
	if size < window {
		window = size
	}
	if _, err := r.Seek(-window, io.SeekEnd); err != nil {
		return 0, err
	}
	tail := make([]byte, window)
	if _, err := io.ReadFull(r, tail); err != nil {
		return 0, err
	}

	for end := len(tail); end > 0; {
		at := bytes.LastIndex(tail[:end], oggMagic)
		if at < 0 {
			break
		}
		if page := tail[at:]; len(page) >= oggPageHeader && binary.LittleEndian.Uint32(page[14:18]) == serial {
			// pages where no packet ends carry a granule of -1
			if granule := binary.LittleEndian.Uint64(page[6:14]); granule != math.MaxUint64 {
				return granule, nil
			}
		}
		end = at
	}
	return 0, fmt.Errorf("%w: no granule position", errNoDuration)
}

// adtsDuration walks every ADTS frame, after an optional ID3 header.
func adtsDuration(r io.Reader) (int, error) {
	reader := bufio.NewReader(r)
	if head, err := reader.Peek(10); err == nil && string(head[:3]) == "ID3" {
		size := int(head[6]&0x7f)<<21 | int(head[7]&0x7f)<<14 | int(head[8]&0x7f)<<7 | int(head[9]&0x7f)
		if _, err := reader.Discard(10 + size); err != nil {
			return 0, err
		}
	}

	var (
		header  = make([]byte, 7)
		samples float64
		rate    float64
	)
	for {
		if _, err := io.ReadFull(reader, header); err != nil {
			break
		}
		if header[0] != 0xFF || header[1]&0xF6 != 0xF0 {
			break
		}
		index := int(header[2]>>2) & 0x0F
		if index >= len(adtsSampleRates) {
			return 0, fmt.Errorf("%w: invalid sampling frequency", errNoDuration)
		}
		length := int(header[3]&0x03)<<11 | int(header[4])<<3 | int(header[5])>>5
		if length < len(header) {
			break
		}
		if _, err := reader.Discard(length - len(header)); err != nil {
			break
		}
		rate = adtsSampleRates[index]
		samples += float64(int(header[6]&0x03)+1) * adtsFrame
	}
	if rate == 0 {
		return 0, fmt.Errorf("%w: no adts frame", errNoDuration)
	}
	return seconds(samples / rate), nil
}

// asfDuration reads play duration and preroll out of the file properties object.
func asfDuration(r io.ReadSeeker) (int, error) {
	header := make([]byte, 30)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}
	if !bytes.Equal(header[:16], asfHeaderGUID) {
		return 0, fmt.Errorf("%w: not an asf stream", errNoDuration)
	}

	object := make([]byte, asfObject)
	for count := binary.LittleEndian.Uint32(header[24:28]); count > 0; count-- {
		if _, err := io.ReadFull(r, object); err != nil {
			return 0, err
		}
		size := binary.LittleEndian.Uint64(object[16:24])
		if size < asfObject {
			return 0, fmt.Errorf("%w: invalid asf object", errNoDuration)
		}
		if !bytes.Equal(object[:16], asfFilePropertiesGUID) {
			if _, err := r.Seek(int64(size-asfObject), io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		properties := make([]byte, 64)
		if _, err := io.ReadFull(r, properties); err != nil {
			return 0, err
		}
		var (
			play    = binary.LittleEndian.Uint64(properties[40:48]) // 100ns units
			preroll = binary.LittleEndian.Uint64(properties[56:64]) // ms
		)
		return seconds(float64(play)/1e7 - float64(preroll)/1e3), nil
	}
	return 0, fmt.Errorf("%w: missing file properties", errNoDuration)
}
