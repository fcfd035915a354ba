// Package device reads GT3X-style device containers: a ZIP archive holding
// an info.txt metadata stream and a log.bin record stream of raw sensor
// payloads. The decoder converts raw counts into g and emits the parallel
// arrays the pipeline stages consume.
package device

import (
	"archive/zip"
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/somnolab/actigraphy/internal/accel"
	"github.com/somnolab/actigraphy/internal/monitoring"
)

// Container layout constants.
const (
	infoName = "info.txt"
	logName  = "log.bin"

	// recordSeparator starts every log.bin record.
	recordSeparator = 0x1E
	// recordHeaderSize covers type (1) + timestamp (4) + payload size (2).
	recordHeaderSize = 7

	// dotNETEpochTicks is the .NET tick count at the Unix epoch; tick
	// fields in info.txt count 100ns intervals since year 1.
	dotNETEpochTicks = 621355968000000000
	ticksPerSecond   = 1e7
)

// Record types carried in log.bin.
const (
	recordActivity  = 0x00 // 12-bit packed tri-axial samples, axis order y,x,z
	recordBattery   = 0x02 // battery voltage, millivolts, uint16 LE
	recordCapSense  = 0x07 // capacitive wear sensor state, one byte
	recordLux       = 0x10 // ambient light, uint16 LE
	recordActivity2 = 0x1A // int16 LE tri-axial samples, axis order x,y,z
)

// FormatError reports a malformed container with the byte offset inside
// log.bin where decoding failed.
type FormatError struct {
	Path   string
	Offset int64
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: offset %d: %s", e.Path, e.Offset, e.Reason)
}

// Options controls decoding.
type Options struct {
	// IncludeAux decodes the light, battery and capsense channels in
	// addition to acceleration.
	IncludeAux bool
}

// ReadMetadata opens a container and decodes only its info stream. It is the
// fast path for listing recordings without touching sample data.
func ReadMetadata(path string) (*accel.DeviceInfo, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	defer zr.Close()
	return readInfo(zr, path)
}

// ReadFile opens a container and decodes its full sample stream.
func ReadFile(path string, opts Options) (*accel.RawSampleSet, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open container %s: %w", path, err)
	}
	defer zr.Close()

	info, err := readInfo(zr, path)
	if err != nil {
		return nil, err
	}

	f, err := openEntry(zr, logName)
	if err != nil {
		return nil, &FormatError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	raw, err := decodeLog(bufio.NewReader(f), path, info, opts)
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("device: %s decoded %d samples at %v Hz", path, raw.Len(), raw.SampleRate)
	return raw, nil
}

func openEntry(zr *zip.ReadCloser, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("missing %s entry", name)
}

// readInfo parses the "Key: Value" lines of info.txt.
func readInfo(zr *zip.ReadCloser, path string) (*accel.DeviceInfo, error) {
	f, err := openEntry(zr, infoName)
	if err != nil {
		return nil, &FormatError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	info := &accel.DeviceInfo{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "Serial Number":
			info.Serial = value
		case "Device Type":
			info.DeviceType = value
		case "Firmware":
			info.Firmware = value
		case "Sample Rate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, &FormatError{Path: path, Reason: fmt.Sprintf("bad sample rate %q", value)}
			}
			info.SampleRate = rate
		case "Start Date":
			ticks, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, &FormatError{Path: path, Reason: fmt.Sprintf("bad start date %q", value)}
			}
			info.StartTime = ticksToTime(ticks)
		case "Acceleration Scale":
			scale, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, &FormatError{Path: path, Reason: fmt.Sprintf("bad acceleration scale %q", value)}
			}
			info.AccelScale = scale
		case "TimeZone":
			if d, err := parseTimezone(value); err == nil {
				info.TimezoneOffset = d
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s from %s: %w", infoName, path, err)
	}
	if info.SampleRate <= 0 {
		return nil, &FormatError{Path: path, Reason: "info.txt missing sample rate"}
	}
	if info.AccelScale <= 0 {
		return nil, &FormatError{Path: path, Reason: "info.txt missing acceleration scale"}
	}
	return info, nil
}

// ticksToTime converts a .NET tick count (100ns since year 1) to UTC time.
func ticksToTime(ticks int64) time.Time {
	unix := ticks - dotNETEpochTicks
	return time.Unix(unix/int64(ticksPerSecond), (unix%int64(ticksPerSecond))*100).UTC()
}

// parseTimezone parses "-05:00:00" or "-05:00" style offsets.
func parseTimezone(s string) (time.Duration, error) {
	sign := time.Duration(1)
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("bad timezone %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	return sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}

// decodeLog walks the record stream. Record layout:
//
//	separator(1) type(1) timestamp(4, uint32 LE unix seconds)
//	size(2, uint16 LE) payload(size) checksum(1)
//
// The checksum is the one's complement of the XOR over every preceding byte
// of the record including the separator.
func decodeLog(r *bufio.Reader, path string, info *accel.DeviceInfo, opts Options) (*accel.RawSampleSet, error) {
	raw := &accel.RawSampleSet{
		SampleRate: info.SampleRate,
		Device:     info,
	}

	var offset int64
	header := make([]byte, recordHeaderSize)
	for {
		sep, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s from %s: %w", logName, path, err)
		}
		if sep != recordSeparator {
			return nil, &FormatError{Path: path, Offset: offset,
				Reason: fmt.Sprintf("bad record separator 0x%02X", sep)}
		}
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, &FormatError{Path: path, Offset: offset, Reason: "truncated record header"}
		}
		recType := header[0]
		ts := binary.LittleEndian.Uint32(header[1:5])
		size := binary.LittleEndian.Uint16(header[5:7])

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, &FormatError{Path: path, Offset: offset, Reason: "truncated record payload"}
		}
		sum, err := r.ReadByte()
		if err != nil {
			return nil, &FormatError{Path: path, Offset: offset, Reason: "missing record checksum"}
		}
		if want := recordChecksum(recType, header[1:7], payload); sum != want {
			return nil, &FormatError{Path: path, Offset: offset,
				Reason: fmt.Sprintf("record checksum 0x%02X, want 0x%02X", sum, want)}
		}

		recTime := float64(ts)
		switch recType {
		case recordActivity:
			if err := decodePacked(raw, payload, recTime, info); err != nil {
				return nil, &FormatError{Path: path, Offset: offset, Reason: err.Error()}
			}
		case recordActivity2:
			if err := decodeInt16(raw, payload, recTime, info); err != nil {
				return nil, &FormatError{Path: path, Offset: offset, Reason: err.Error()}
			}
		case recordLux:
			if opts.IncludeAux && len(payload) >= 2 {
				raw.Light = append(raw.Light, float64(binary.LittleEndian.Uint16(payload)))
			}
		case recordBattery:
			if opts.IncludeAux && len(payload) >= 2 {
				raw.Battery = append(raw.Battery, float64(binary.LittleEndian.Uint16(payload))/1000)
			}
		case recordCapSense:
			if opts.IncludeAux && len(payload) >= 1 {
				raw.CapSense = append(raw.CapSense, payload[0] != 0)
			}
		default:
			// Unknown record types are valid in newer firmware; skip.
			monitoring.Debugf("device: %s skipping record type 0x%02X (%d bytes)", path, recType, size)
		}

		offset += 1 + recordHeaderSize + int64(size) + 1
	}

	if raw.Len() == 0 {
		return nil, &FormatError{Path: path, Offset: offset, Reason: "no activity records"}
	}
	return raw, nil
}

// recordChecksum is the one's complement of the XOR over separator, type,
// header fields and payload.
func recordChecksum(recType byte, header, payload []byte) byte {
	sum := byte(recordSeparator) ^ recType
	for _, b := range header {
		sum ^= b
	}
	for _, b := range payload {
		sum ^= b
	}
	return ^sum
}

// decodeInt16 decodes an ACTIVITY2 payload: consecutive int16 LE triplets in
// axis order x, y, z.
func decodeInt16(raw *accel.RawSampleSet, payload []byte, recTime float64, info *accel.DeviceInfo) error {
	if len(payload)%6 != 0 {
		return fmt.Errorf("activity2 payload size %d not a multiple of 6", len(payload))
	}
	n := len(payload) / 6
	for i := 0; i < n; i++ {
		x := int16(binary.LittleEndian.Uint16(payload[i*6:]))
		y := int16(binary.LittleEndian.Uint16(payload[i*6+2:]))
		z := int16(binary.LittleEndian.Uint16(payload[i*6+4:]))
		appendSample(raw, float64(x), float64(y), float64(z), recTime, i, info)
	}
	return nil
}

// decodePacked decodes an ACTIVITY payload: 12-bit big-endian two's
// complement values packed back to back, three per sample in axis order
// y, x, z.
func decodePacked(raw *accel.RawSampleSet, payload []byte, recTime float64, info *accel.DeviceInfo) error {
	bits := len(payload) * 8
	if bits%36 != 0 {
		return fmt.Errorf("activity payload of %d bytes does not hold whole samples", len(payload))
	}
	n := bits / 36
	br := bitReader{data: payload}
	for i := 0; i < n; i++ {
		y := br.take12()
		x := br.take12()
		z := br.take12()
		appendSample(raw, float64(x), float64(y), float64(z), recTime, i, info)
	}
	return nil
}

func appendSample(raw *accel.RawSampleSet, x, y, z, recTime float64, i int, info *accel.DeviceInfo) {
	raw.X = append(raw.X, x/info.AccelScale)
	raw.Y = append(raw.Y, y/info.AccelScale)
	raw.Z = append(raw.Z, z/info.AccelScale)
	raw.Timestamps = append(raw.Timestamps, recTime+float64(i)/info.SampleRate)
}

// bitReader yields 12-bit big-endian values from a byte stream.
type bitReader struct {
	data []byte
	pos  int // bit position
}

// take12 reads the next 12 bits MSB-first and sign-extends them as a two's
// complement value.
func (b *bitReader) take12() int {
	v := 0
	for i := 0; i < 12; i++ {
		byteIdx := b.pos >> 3
		bitIdx := 7 - (b.pos & 7)
		v = v<<1 | int(b.data[byteIdx]>>bitIdx)&1
		b.pos++
	}
	if v&0x800 != 0 {
		v -= 0x1000
	}
	return v
}
