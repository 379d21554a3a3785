package local

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const (
	fileSeparator = "================"
	fileHeader    = "File: "
)

// zstdMagic prefixes every zstd frame
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// snapshotFile is one file section of a packed snapshot
type snapshotFile struct {
	Path  string
	Lines []string
}

// renderSnapshot writes files in the repomix plain layout: a separator,
// a "File: <path>" header, a separator, then the file content
func renderSnapshot(files []snapshotFile) []byte {
	var buf bytes.Buffer
	for _, f := range files {
		buf.WriteString(fileSeparator + "\n")
		buf.WriteString(fileHeader + f.Path + "\n")
		buf.WriteString(fileSeparator + "\n")
		for _, line := range f.Lines {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// parseSnapshot splits a rendered snapshot back into files. Line i of a
// file's Lines is line i+1 of the original file.
func parseSnapshot(data []byte) []snapshotFile {
	lines := strings.Split(string(data), "\n")

	var files []snapshotFile
	var current *snapshotFile
	for i := 0; i < len(lines); i++ {
		if lines[i] == fileSeparator && i+2 < len(lines) &&
			strings.HasPrefix(lines[i+1], fileHeader) && lines[i+2] == fileSeparator {
			if current != nil {
				files = append(files, trimSection(*current))
			}
			current = &snapshotFile{Path: strings.TrimPrefix(lines[i+1], fileHeader)}
			i += 2
			continue
		}
		if current != nil {
			current.Lines = append(current.Lines, lines[i])
		}
	}
	if current != nil {
		files = append(files, trimSection(*current))
	}
	return files
}

// trimSection drops the blank line renderSnapshot appends after each file
// and the trailing empty element left by the final newline
func trimSection(f snapshotFile) snapshotFile {
	for n := 0; n < 2 && len(f.Lines) > 0 && f.Lines[len(f.Lines)-1] == ""; n++ {
		f.Lines = f.Lines[:len(f.Lines)-1]
	}
	return f
}

// splitFileLines splits file content into lines without a trailing empty one
func splitFileLines(content []byte) []string {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/3)), nil
}

// decode returns the plain snapshot, decompressing zstd frames when present
func decode(blob []byte) ([]byte, error) {
	if !bytes.HasPrefix(blob, zstdMagic) {
		return blob, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	return out, nil
}
