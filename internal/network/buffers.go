package network

import (
	"encoding/binary"
	"math"
)

// MaxBlobSize максимальная длина строки/блоба с 2-байтовым префиксом
const MaxBlobSize = math.MaxUint16

// WriteBuffer буфер только на добавление с необязательным лимитом.
// Каждая запись сначала проверяет лимит и при переполнении не пишет ничего.
type WriteBuffer struct {
	buf     []byte
	maxSize int // 0 без ограничения
}

// NewWriteBuffer создаёт буфер с лимитом maxSize байт (0 без лимита)
func NewWriteBuffer(maxSize int) *WriteBuffer {
	capHint := maxSize
	if capHint <= 0 || capHint > 4096 {
		capHint = 4096
	}
	return &WriteBuffer{buf: make([]byte, 0, capHint), maxSize: maxSize}
}

// Len текущий размер
func (w *WriteBuffer) Len() int { return len(w.buf) }

// MaxSize лимит буфера
func (w *WriteBuffer) MaxSize() int { return w.maxSize }

// Bytes содержимое буфера. Срез валиден до следующего изменения.
func (w *WriteBuffer) Bytes() []byte { return w.buf }

// Reset очищает буфер, сохраняя память
func (w *WriteBuffer) Reset() { w.buf = w.buf[:0] }

// Fits поместятся ли ещё n байт
func (w *WriteBuffer) Fits(n int) bool {
	return w.maxSize <= 0 || len(w.buf)+n <= w.maxSize
}

// Write добавляет сырые байты
func (w *WriteBuffer) Write(data []byte) bool {
	if !w.Fits(len(data)) {
		return false
	}
	w.buf = append(w.buf, data...)
	return true
}

// WriteUint16 пишет uint16 в big-endian
func (w *WriteBuffer) WriteUint16(v uint16) bool {
	if !w.Fits(2) {
		return false
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return true
}

// WriteInt32 пишет int32 в big-endian
func (w *WriteBuffer) WriteInt32(v int32) bool {
	if !w.Fits(4) {
		return false
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
	return true
}

// WriteFloat32 пишет float32 (IEEE 754) в big-endian
func (w *WriteBuffer) WriteFloat32(v float32) bool {
	if !w.Fits(4) {
		return false
	}
	w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
	return true
}

// WriteBlob пишет 2-байтовую длину и данные
func (w *WriteBuffer) WriteBlob(data []byte) bool {
	if len(data) > MaxBlobSize || !w.Fits(2+len(data)) {
		return false
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(len(data)))
	w.buf = append(w.buf, data...)
	return true
}

// WriteString пишет строку как блоб
func (w *WriteBuffer) WriteString(s string) bool {
	return w.WriteBlob([]byte(s))
}

// ReadBuffer читает с начала накопленных данных.
// Неполное значение не потребляется: чтение вернёт false и дождётся новых данных.
type ReadBuffer struct {
	buf []byte
	off int
}

// NewReadBuffer создаёт буфер поверх data (без копирования)
func NewReadBuffer(data []byte) *ReadBuffer {
	return &ReadBuffer{buf: data}
}

// Feed дописывает данные в конец
func (r *ReadBuffer) Feed(data []byte) {
	r.buf = append(r.buf, data...)
}

// Len число непрочитанных байт
func (r *ReadBuffer) Len() int { return len(r.buf) - r.off }

// Bytes непрочитанные байты
func (r *ReadBuffer) Bytes() []byte { return r.buf[r.off:] }

// Compact сдвигает непрочитанные данные в начало
func (r *ReadBuffer) Compact() {
	if r.off == 0 {
		return
	}
	n := copy(r.buf, r.buf[r.off:])
	r.buf = r.buf[:n]
	r.off = 0
}

// ReadUint16 читает uint16
func (r *ReadBuffer) ReadUint16() (uint16, bool) {
	if r.Len() < 2 {
		return 0, false
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, true
}

// ReadInt32 читает int32
func (r *ReadBuffer) ReadInt32() (int32, bool) {
	if r.Len() < 4 {
		return 0, false
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v, true
}

// ReadFloat32 читает float32
func (r *ReadBuffer) ReadFloat32() (float32, bool) {
	if r.Len() < 4 {
		return 0, false
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v, true
}

// ReadBlob подсматривает длину и потребляет блоб только целиком.
// Возвращённый срез ссылается на внутренний буфер.
func (r *ReadBuffer) ReadBlob() ([]byte, bool) {
	if r.Len() < 2 {
		return nil, false
	}
	n := int(binary.BigEndian.Uint16(r.buf[r.off:]))
	if r.Len() < 2+n {
		return nil, false
	}
	start := r.off + 2
	r.off = start + n
	return r.buf[start:r.off:r.off], true
}

// ReadString читает блоб как строку
func (r *ReadBuffer) ReadString() (string, bool) {
	b, ok := r.ReadBlob()
	if !ok {
		return "", false
	}
	return string(b), true
}
