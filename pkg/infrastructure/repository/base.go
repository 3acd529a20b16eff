package repository

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/miu200521358/motion_supporter/pkg/domain/mmath"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// baseReader はリトルエンディアンのバイナリ読み込み。最初のエラーを保持し、以降の読み込みは何もしない
type baseReader struct {
	r   *bufio.Reader
	err error
}

func newBaseReader(r io.Reader) *baseReader {
	return &baseReader{r: bufio.NewReader(r)}
}

func (br *baseReader) read(v interface{}) {
	if br.err != nil {
		return
	}
	br.err = binary.Read(br.r, binary.LittleEndian, v)
}

func (br *baseReader) readUint8() byte {
	var v uint8
	br.read(&v)
	return v
}

func (br *baseReader) readUint16() uint16 {
	var v uint16
	br.read(&v)
	return v
}

func (br *baseReader) readUint32() int {
	var v uint32
	br.read(&v)
	return int(v)
}

func (br *baseReader) readInt32() int {
	var v int32
	br.read(&v)
	return int(v)
}

func (br *baseReader) readFloat() float64 {
	var v float32
	br.read(&v)
	return float64(v)
}

func (br *baseReader) readFloats(values []float64) {
	for i := range values {
		values[i] = br.readFloat()
	}
}

func (br *baseReader) readVec2() *mmath.MVec2 {
	var v [2]float32
	br.read(&v)
	return &mmath.MVec2{X: float64(v[0]), Y: float64(v[1])}
}

func (br *baseReader) readVec3() *mmath.MVec3 {
	var v [3]float32
	br.read(&v)
	return &mmath.MVec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

func (br *baseReader) readQuaternion() *mmath.MQuaternion {
	var v [4]float32
	br.read(&v)
	return mmath.NewMQuaternionByValues(float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3]))
}

func (br *baseReader) readBytes(size int) []byte {
	b := make([]byte, size)
	if br.err != nil {
		return b
	}
	_, br.err = io.ReadFull(br.r, b)
	return b
}

func (br *baseReader) skip(size int) {
	if br.err != nil || size <= 0 {
		return
	}
	_, br.err = br.r.Discard(size)
}

// unexpectedEOF はセクションの途中で終わった場合に EOF を形式不正として扱う
func (br *baseReader) unexpectedEOF() {
	if br.err == io.EOF {
		br.err = io.ErrUnexpectedEOF
	}
}

// readIndex は PMX の符号付きINDEX(-1 は未指定)
func (br *baseReader) readIndex(size byte) int {
	switch size {
	case 1:
		var v int8
		br.read(&v)
		return int(v)
	case 2:
		var v int16
		br.read(&v)
		return int(v)
	default:
		var v int32
		br.read(&v)
		return int(v)
	}
}

// readVertexIndex は PMX の頂点INDEX。1,2byte は符号なし
func (br *baseReader) readVertexIndex(size byte) int {
	switch size {
	case 1:
		return int(br.readUint8())
	case 2:
		return int(br.readUint16())
	default:
		return br.readInt32()
	}
}

// readSjis は固定長の Shift-JIS 文字列を NUL までで読む
func (br *baseReader) readSjis(size int) string {
	b := br.readBytes(size)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(decoded)
}

// readText は PMX の可変長文字列(0:UTF-16LE, 1:UTF-8)
func (br *baseReader) readText(encodingType byte) string {
	size := br.readInt32()
	if br.err != nil || size <= 0 {
		return ""
	}
	b := br.readBytes(size)
	if encodingType == 1 {
		return string(b)
	}
	decoded, _, err := transform.Bytes(utf16le().NewDecoder(), b)
	if err != nil {
		return ""
	}
	return string(decoded)
}

func utf16le() encoding.Encoding {
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}

// baseWriter はリトルエンディアンのバイナリ書き込み。最初のエラーを保持する
type baseWriter struct {
	w   *bufio.Writer
	err error
}

func newBaseWriter(w io.Writer) *baseWriter {
	return &baseWriter{w: bufio.NewWriter(w)}
}

func (bw *baseWriter) write(v interface{}) {
	if bw.err != nil {
		return
	}
	bw.err = binary.Write(bw.w, binary.LittleEndian, v)
}

func (bw *baseWriter) writeUint8(v byte) {
	bw.write(v)
}

func (bw *baseWriter) writeUint16(v uint16) {
	bw.write(v)
}

func (bw *baseWriter) writeUint32(v int) {
	bw.write(uint32(v))
}

func (bw *baseWriter) writeInt32(v int) {
	bw.write(int32(v))
}

func (bw *baseWriter) writeFloat(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	bw.write(float32(v))
}

func (bw *baseWriter) writeVec2(v *mmath.MVec2) {
	bw.writeFloat(v.X)
	bw.writeFloat(v.Y)
}

func (bw *baseWriter) writeVec3(v *mmath.MVec3) {
	bw.writeFloat(v.X)
	bw.writeFloat(v.Y)
	bw.writeFloat(v.Z)
}

func (bw *baseWriter) writeQuaternion(q *mmath.MQuaternion) {
	bw.writeFloat(q.X)
	bw.writeFloat(q.Y)
	bw.writeFloat(q.Z)
	bw.writeFloat(q.W)
}

func (bw *baseWriter) writeBytes(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

// writeFixed は size バイトに切り詰め、足りない分を0で埋めて書く
func (bw *baseWriter) writeFixed(b []byte, size int) {
	fixed := make([]byte, size)
	copy(fixed, b)
	bw.writeBytes(fixed)
}

// writeIndex は4byteのINDEX
func (bw *baseWriter) writeIndex(v int) {
	bw.writeInt32(v)
}

// writeText は UTF-16LE の可変長文字列
func (bw *baseWriter) writeText(s string) {
	encoded, _, err := transform.Bytes(utf16le().NewEncoder(), []byte(s))
	if err != nil {
		encoded = nil
	}
	bw.writeInt32(len(encoded))
	bw.writeBytes(encoded)
}

func (bw *baseWriter) flush() error {
	if bw.err != nil {
		return bw.err
	}
	return errors.WithStack(bw.w.Flush())
}

// encodeSjis は size バイトに収まるところまで Shift-JIS に変換する。
// 変換できない文字があった場合はその文字を除いた結果とエラーを返す
func encodeSjis(s string, size int) ([]byte, error) {
	encoder := japanese.ShiftJIS.NewEncoder()
	result := make([]byte, 0, size)
	var encodeErr error

	for _, r := range s {
		b, err := encoder.Bytes([]byte(string(r)))
		if err != nil {
			if encodeErr == nil {
				encodeErr = errors.Errorf("shift-jis encode failed: %q", r)
			}
			continue
		}
		if len(result)+len(b) > size {
			break
		}
		result = append(result, b...)
	}

	return result, encodeErr
}
