package object

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/zlib"
)

// maxHeaderLen bounds the region scanned for the envelope header: the longest
// kind ("commit"), a space, a 20-digit length and the NUL terminator.
const maxHeaderLen = 32

func envelopeHeader(objType ObjectType, n int) []byte {
	return []byte(fmt.Sprintf("%s %d\x00", objType, n))
}

// Encode builds the envelope "type len\0payload" and returns it along with
// its content hash.
func Encode(objType ObjectType, payload []byte) (Hash, []byte) {
	header := envelopeHeader(objType, len(payload))
	envelope := make([]byte, 0, len(header)+len(payload))
	envelope = append(envelope, header...)
	envelope = append(envelope, payload...)
	return HashObject(objType, payload), envelope
}

// Decode splits an envelope into its kind and payload. Only the header
// region is scanned for the NUL terminator; the payload may contain any
// bytes.
func Decode(envelope []byte) (ObjectType, []byte, error) {
	header := envelope
	if len(header) > maxHeaderLen {
		header = header[:maxHeaderLen]
	}
	sp := bytes.IndexByte(header, ' ')
	if sp < 0 {
		return "", nil, fmt.Errorf("%w: missing kind separator", ErrCorrupt)
	}
	nul := bytes.IndexByte(header[sp+1:], 0)
	if nul < 0 {
		return "", nil, fmt.Errorf("%w: missing header terminator", ErrCorrupt)
	}
	nul += sp + 1

	objType := ObjectType(header[:sp])
	if !objType.Valid() {
		return "", nil, fmt.Errorf("%w: unknown kind %q", ErrCorrupt, objType)
	}
	sizeField := string(header[sp+1 : nul])
	length, err := strconv.Atoi(sizeField)
	if err != nil || length < 0 {
		return "", nil, fmt.Errorf("%w: invalid length %q", ErrCorrupt, sizeField)
	}
	payload := envelope[nul+1:]
	if len(payload) != length {
		return "", nil, fmt.Errorf("%w: length mismatch (header=%d, actual=%d)", ErrCorrupt, length, len(payload))
	}
	return objType, payload, nil
}

// Compress deflates data with zlib at the given level.
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates zlib data. Any failure is reported as ErrCorrupt.
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}
