package trace

import (
	"bufio"
	"io"
	"os"

	"github.com/behrlich/cachesim"
	"github.com/behrlich/cachesim/internal/proto"
)

// FileSource is a line-oriented instruction stream read from a trace
// file: two whitespace-separated tokens per line, an opcode in
// {0,1,2,3,4} and a hexadecimal operand. Blank lines and lines
// consisting only of whitespace are skipped.
type FileSource struct {
	path    string
	file    *os.File
	scanner *bufio.Scanner
	lineNo  int
}

// NewFileSource opens path and returns a FileSource reading from it.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cachesim.WrapError("trace.NewFileSource", err)
	}
	fs := &FileSource{path: path, file: f}
	fs.scanner = bufio.NewScanner(f)
	return fs, nil
}

// Next returns the next instruction, or ErrEndOfTrace at EOF.
func (fs *FileSource) Next() (proto.Instruction, error) {
	for fs.scanner.Scan() {
		fs.lineNo++
		line := fs.scanner.Text()
		if isBlank(line) {
			continue
		}
		instr, err := proto.ParseLine(line)
		if err != nil {
			return proto.Instruction{}, cachesim.NewTraceParseError("FileSource.Next", fs.path, fs.lineNo, err)
		}
		return instr, nil
	}
	if err := fs.scanner.Err(); err != nil {
		return proto.Instruction{}, cachesim.WrapError("FileSource.Next", err)
	}
	return proto.Instruction{}, ErrEndOfTrace
}

// Reset seeks back to the start of the file and rebuilds the scanner.
func (fs *FileSource) Reset() error {
	if _, err := fs.file.Seek(0, io.SeekStart); err != nil {
		return cachesim.WrapError("FileSource.Reset", err)
	}
	fs.scanner = bufio.NewScanner(fs.file)
	fs.lineNo = 0
	return nil
}

// Close releases the underlying file handle.
func (fs *FileSource) Close() error {
	return fs.file.Close()
}

func isBlank(line string) bool {
	for _, r := range line {
		if r != ' ' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}
