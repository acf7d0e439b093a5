package sshserver

import (
	"bufio"
	"io"
	"unicode"
	"unicode/utf8"
)

type keyKind int

const (
	keyRune keyKind = iota
	keyEnter
	keyEscape
	keyBackspace
	keyDelete
	keyLeft
	keyRight
	keyHome
	keyEnd
	keyUp
	keyDown
	keyCtrlA
	keyCtrlE
	keyCtrlW
	keyCtrlU
	keyCtrlK
	keyCtrlD
	keyCtrlC
	keyCtrlL
	keyTab
	keyShiftTab
)

type key struct {
	kind keyKind
	r    rune
}

// readKeys decodes terminal input into keys until r fails or done closes.
func readKeys(r io.Reader, out chan<- key, done <-chan struct{}) {
	defer close(out)
	kr := keyReader{br: bufio.NewReader(r), out: out, done: done}
	lastWasCR := false
	for {
		b, err := kr.br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		var ok bool
		switch b {
		case 0x1b:
			// A lone escape arrives without a sequence in the same read.
			if kr.br.Buffered() == 0 {
				ok = kr.emit(keyEscape)
			} else {
				ok = kr.readEscape()
			}
		case '\r':
			ok = kr.emit(keyEnter)
			lastWasCR = true
		case '\n':
			ok = kr.emit(keyEnter)
		case 0x7f, 0x08:
			ok = kr.emit(keyBackspace)
		case 0x01:
			ok = kr.emit(keyCtrlA)
		case 0x05:
			ok = kr.emit(keyCtrlE)
		case 0x15:
			ok = kr.emit(keyCtrlU)
		case 0x0b:
			ok = kr.emit(keyCtrlK)
		case 0x0c:
			ok = kr.emit(keyCtrlL)
		case 0x17:
			ok = kr.emit(keyCtrlW)
		case 0x04:
			ok = kr.emit(keyCtrlD)
		case 0x03:
			ok = kr.emit(keyCtrlC)
		case 0x09:
			ok = kr.emit(keyTab)
		default:
			if b < utf8.RuneSelf {
				if b < 0x20 {
					continue
				}
				ok = kr.send(key{kind: keyRune, r: rune(b)})
				break
			}
			_ = kr.br.UnreadByte()
			rn, _, err := kr.br.ReadRune()
			if err != nil {
				return
			}
			ok = kr.send(key{kind: keyRune, r: rn})
		}
		if !ok {
			return
		}
	}
}

type keyReader struct {
	br   *bufio.Reader
	out  chan<- key
	done <-chan struct{}
}

func (kr keyReader) emit(kind keyKind) bool {
	return kr.send(key{kind: kind})
}

// send reports false once the session is gone.
func (kr keyReader) send(k key) bool {
	select {
	case kr.out <- k:
		return true
	case <-kr.done:
		return false
	}
}

// readEscape consumes an escape sequence. Unknown or truncated sequences
// are dropped.
func (kr keyReader) readEscape() bool {
	b, err := kr.br.ReadByte()
	if err != nil {
		return true
	}
	switch b {
	case '[':
		return kr.readCSI()
	case 'O':
		return kr.readSS3()
	case 0x1b:
		return kr.emit(keyEscape)
	}
	return true
}

var csiKeys = map[string]keyKind{
	"A":    keyUp,
	"B":    keyDown,
	"C":    keyRight,
	"D":    keyLeft,
	"H":    keyHome,
	"1~":   keyHome,
	"7~":   keyHome,
	"F":    keyEnd,
	"4~":   keyEnd,
	"8~":   keyEnd,
	"3~":   keyDelete,
	"Z":    keyShiftTab,
	"1;2Z": keyShiftTab,
}

var ss3Keys = map[byte]keyKind{
	'A': keyUp,
	'B': keyDown,
	'C': keyRight,
	'D': keyLeft,
	'H': keyHome,
	'F': keyEnd,
}

func (kr keyReader) readCSI() bool {
	seq := []byte{}
	for {
		b, err := kr.br.ReadByte()
		if err != nil {
			return true
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return true
		}
	}
	if kind, ok := csiKeys[string(seq)]; ok {
		return kr.emit(kind)
	}
	return true
}

func (kr keyReader) readSS3() bool {
	b, err := kr.br.ReadByte()
	if err != nil {
		return true
	}
	if kind, ok := ss3Keys[b]; ok {
		return kr.emit(kind)
	}
	return true
}

// lineEditor holds the text of the focused text entry.
type lineEditor struct {
	buf    []rune
	cursor int
}

func (e *lineEditor) String() string {
	return string(e.buf)
}

func (e *lineEditor) Len() int {
	return len(e.buf)
}

// Cursor returns the cursor position in runes.
func (e *lineEditor) Cursor() int {
	return e.cursor
}

func (e *lineEditor) Clear() {
	e.buf = nil
	e.cursor = 0
}

func (e *lineEditor) SetString(value string) {
	if value == "" {
		e.Clear()
		return
	}
	e.buf = []rune(value)
	e.cursor = len(e.buf)
}

func (e *lineEditor) InsertRune(r rune) {
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.cursor > len(e.buf) {
		e.cursor = len(e.buf)
	}
	e.buf = append(e.buf[:e.cursor], append([]rune{r}, e.buf[e.cursor:]...)...)
	e.cursor++
}

func (e *lineEditor) Backspace() {
	if e.cursor <= 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
}

func (e *lineEditor) Delete() {
	if e.cursor < 0 || e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
}

func (e *lineEditor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *lineEditor) MoveRight() {
	if e.cursor < len(e.buf) {
		e.cursor++
	}
}

func (e *lineEditor) MoveStart() {
	e.cursor = 0
}

func (e *lineEditor) MoveEnd() {
	e.cursor = len(e.buf)
}

func (e *lineEditor) DeleteWordBackward() {
	if e.cursor <= 0 {
		return
	}
	start := e.cursor
	for start > 0 && isWordBreak(e.buf[start-1]) {
		start--
	}
	for start > 0 && !isWordBreak(e.buf[start-1]) {
		start--
	}
	e.buf = append(e.buf[:start], e.buf[e.cursor:]...)
	e.cursor = start
}

func (e *lineEditor) KillLineStart() {
	if e.cursor <= 0 {
		return
	}
	e.buf = append([]rune(nil), e.buf[e.cursor:]...)
	e.cursor = 0
}

func (e *lineEditor) KillLineEnd() {
	if e.cursor >= len(e.buf) {
		return
	}
	e.buf = e.buf[:e.cursor]
}

func isWordBreak(r rune) bool {
	return r == ' ' || r == '\t' || r == ':'
}
