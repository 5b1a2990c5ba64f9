// Package matio reads a matrix from and writes an inverse to the plain text
// format used by the gjinverse command: the dimension n, then n*n reals in
// row-major order, all separated by whitespace.
package matio

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Scanner reads whitespace-separated numeric tokens.
type Scanner struct {
	s     *bufio.Scanner
	token int
}

func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return &Scanner{s: s}
}

func (s *Scanner) next() (string, error) {
	if !s.s.Scan() {
		if err := s.s.Err(); err != nil {
			return "", errors.Wrap(err, "read token")
		}
		return "", errors.Wrapf(io.ErrUnexpectedEOF, "token %d", s.token+1)
	}
	s.token++
	return s.s.Text(), nil
}

// ReadInt reads the next token as a decimal integer.
func (s *Scanner) ReadInt() (int, error) {
	tok, err := s.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "token %d", s.token)
	}
	return v, nil
}

// ReadFloat reads the next token as a real number.
func (s *Scanner) ReadFloat() (float64, error) {
	tok, err := s.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "token %d", s.token)
	}
	return v, nil
}

// ReadMatrix reads n followed by n*n reals and returns the n x n matrix.
func ReadMatrix(r io.Reader) ([][]float64, error) {
	s := NewScanner(r)
	n, err := s.ReadInt()
	if err != nil {
		return nil, errors.Wrap(err, "read matrix size")
	}
	if n <= 0 {
		return nil, errors.Errorf("matrix size must be positive, got %d", n)
	}
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		for j := range a[i] {
			if a[i][j], err = s.ReadFloat(); err != nil {
				return nil, errors.Wrapf(err, "read element (%d,%d)", i, j)
			}
		}
	}
	return a, nil
}

// appendFixed formats v like C's %.*f, including the nan, -nan, inf and
// -inf spellings for non-finite values.
func appendFixed(buf []byte, v float64, prec int) []byte {
	switch {
	case math.IsNaN(v) && math.Signbit(v):
		return append(buf, "-nan"...)
	case math.IsNaN(v):
		return append(buf, "nan"...)
	case math.IsInf(v, 1):
		return append(buf, "inf"...)
	case math.IsInf(v, -1):
		return append(buf, "-inf"...)
	}
	return strconv.AppendFloat(buf, v, 'f', prec, 64)
}

// WriteMatrix writes one line per row with values separated by single
// spaces, in fixed-point notation with prec digits after the decimal point.
func WriteMatrix(w io.Writer, m [][]float64, prec int) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, row := range m {
		buf = buf[:0]
		for j, v := range row {
			if j > 0 {
				buf = append(buf, ' ')
			}
			buf = appendFixed(buf, v, prec)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return errors.Wrap(err, "write matrix")
		}
	}
	return errors.Wrap(bw.Flush(), "write matrix")
}
