package terminal

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Parser decodes a terminal output stream and applies it to a Screen.
//
// Only sequences that change text, cursor position or buffer selection have
// an effect. Graphic renditions, charset selection and device queries are
// consumed and dropped. A Parser is not safe for concurrent use.
type Parser struct {
	screen *Screen

	state  parserState
	params []int
	inter  []byte
	osc    []byte

	// Pending bytes of a multi-byte UTF-8 rune.
	pending []byte
	want    int

	onTitle   func(string)
	onOSC     func(cmd int, data string)
	onUnknown func(seq string)
}

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateEscapeInter
	stateCSI
	stateCSIParam
	stateCSIInter
	stateOSC
	stateDCS
)

// NewParser creates a parser writing to screen.
func NewParser(screen *Screen) *Parser {
	return &Parser{
		screen:  screen,
		params:  make([]int, 0, 16),
		inter:   make([]byte, 0, 4),
		osc:     make([]byte, 0, 256),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// SetTitleCallback sets the callback for OSC 0 and 2 title changes.
func (p *Parser) SetTitleCallback(fn func(string)) {
	p.onTitle = fn
}

// SetOSCCallback sets the callback for other OSC commands.
func (p *Parser) SetOSCCallback(fn func(cmd int, data string)) {
	p.onOSC = fn
}

// SetUnknownCallback sets the callback for sequences the parser ignores.
func (p *Parser) SetUnknownCallback(fn func(seq string)) {
	p.onUnknown = fn
}

// Parse applies data to the screen. Sequences may span calls.
func (p *Parser) Parse(data []byte) {
	for _, b := range data {
		p.processByte(b)
	}
}

// ParseString applies s to the screen.
func (p *Parser) ParseString(s string) {
	p.Parse([]byte(s))
}

func (p *Parser) processByte(b byte) {
	switch p.state {
	case stateGround:
		p.processGround(b)
	case stateEscape:
		p.processEscape(b)
	case stateEscapeInter:
		p.processEscapeInter(b)
	case stateCSI, stateCSIParam:
		p.processCSIParam(b)
	case stateCSIInter:
		p.processCSIInter(b)
	case stateOSC:
		p.processOSC(b)
	case stateDCS:
		p.processDCS(b)
	}
}

func (p *Parser) processGround(b byte) {
	if p.want > 0 {
		p.continueRune(b)
		return
	}

	switch {
	case b == 0x1B:
		p.enterEscape()
	case b == 0x08:
		p.screen.MoveCursorRelative(-1, 0)
	case b == 0x09:
		p.screen.Tab()
	case b == 0x0A, b == 0x0B, b == 0x0C:
		p.screen.LineFeed()
	case b == 0x0D:
		p.screen.CarriageReturn()
	case b >= 0x20 && b < 0x7F:
		p.screen.WriteRune(rune(b))
	case b >= 0xC0 && b < 0xF8:
		p.pending = append(p.pending[:0], b)
		switch {
		case b < 0xE0:
			p.want = 2
		case b < 0xF0:
			p.want = 3
		default:
			p.want = 4
		}
	case b >= 0x80:
		p.screen.WriteRune(utf8.RuneError)
	}
}

// continueRune collects a UTF-8 continuation byte. A byte that cannot
// continue the rune emits a replacement character and is reprocessed.
func (p *Parser) continueRune(b byte) {
	if b&0xC0 != 0x80 {
		p.want = 0
		p.screen.WriteRune(utf8.RuneError)
		p.processGround(b)
		return
	}

	p.pending = append(p.pending, b)
	if len(p.pending) < p.want {
		return
	}
	r, _ := utf8.DecodeRune(p.pending)
	p.want = 0
	p.screen.WriteRune(r)
}

func (p *Parser) enterEscape() {
	if p.want > 0 {
		p.want = 0
		p.screen.WriteRune(utf8.RuneError)
	}
	p.state = stateEscape
	p.params = p.params[:0]
	p.inter = p.inter[:0]
}

func (p *Parser) processEscape(b byte) {
	p.state = stateGround

	switch b {
	case '[':
		p.state = stateCSI
	case ']':
		p.state = stateOSC
		p.osc = p.osc[:0]
	case 'P':
		p.state = stateDCS
	case '7': // DECSC
		p.screen.SaveCursor()
	case '8': // DECRC
		p.screen.RestoreCursor()
	case 'D': // IND
		p.screen.LineFeed()
	case 'E': // NEL
		p.screen.CarriageReturn()
		p.screen.LineFeed()
	case 'M': // RI
		p.screen.ReverseLineFeed()
	case 'c': // RIS
		p.screen.Reset()
	case '\\': // ST
	default:
		switch {
		case b >= 0x20 && b <= 0x2F:
			p.inter = append(p.inter, b)
			p.state = stateEscapeInter
		case b >= 0x30 && b <= 0x7E:
			p.unknown("ESC " + string(p.inter) + string(b))
		}
	}
}

func (p *Parser) processEscapeInter(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2F:
		p.inter = append(p.inter, b)
	case b >= 0x30 && b <= 0x7E:
		// Charset designation and similar; nothing to apply.
		p.unknown("ESC " + string(p.inter) + string(b))
		p.state = stateGround
	default:
		p.state = stateGround
	}
}

func (p *Parser) processCSIParam(b byte) {
	switch {
	case b >= '0' && b <= '9':
		if p.state == stateCSI {
			p.params = append(p.params, 0)
		}
		last := len(p.params) - 1
		p.params[last] = p.params[last]*10 + int(b-'0')
		p.state = stateCSIParam
	case b == ';', b == ':':
		// An empty field still counts as a parameter.
		if p.state == stateCSI {
			p.params = append(p.params, 0)
		}
		p.state = stateCSI
	case p.state == stateCSI && (b == '?' || b == '>' || b == '!' || b == '='):
		p.inter = append(p.inter, b)
	case b >= 0x20 && b <= 0x2F:
		p.inter = append(p.inter, b)
		p.state = stateCSIInter
	case b >= 0x40 && b <= 0x7E:
		p.handleCSI(b)
		p.state = stateGround
	default:
		p.state = stateGround
	}
}

func (p *Parser) processCSIInter(b byte) {
	switch {
	case b >= 0x20 && b <= 0x2F:
		p.inter = append(p.inter, b)
	case b >= 0x40 && b <= 0x7E:
		p.handleCSI(b)
		p.state = stateGround
	default:
		p.state = stateGround
	}
}

func (p *Parser) processOSC(b byte) {
	switch b {
	case 0x07, 0x9C:
		p.handleOSC()
		p.state = stateGround
	case 0x1B:
		p.handleOSC()
		p.enterEscape()
	default:
		p.osc = append(p.osc, b)
	}
}

// processDCS consumes a device control string up to its terminator.
func (p *Parser) processDCS(b byte) {
	switch b {
	case 0x1B:
		p.enterEscape()
	case 0x9C:
		p.state = stateGround
	}
}

func (p *Parser) handleCSI(final byte) {
	prefix := byte(0)
	if len(p.inter) > 0 {
		prefix = p.inter[0]
	}
	if prefix == '?' && (final == 'h' || final == 'l') {
		p.handlePrivateMode(final == 'h')
		return
	}
	if prefix != 0 && prefix != '?' {
		// Secondary device attributes, cursor style and friends.
		p.unknown(p.describeCSI(final))
		return
	}

	s := p.screen
	n := p.param(0, 1)

	switch final {
	case 'A': // CUU
		s.MoveCursorRelative(0, -n)
	case 'B', 'e': // CUD, VPR
		s.MoveCursorRelative(0, n)
	case 'C', 'a': // CUF, HPR
		s.MoveCursorRelative(n, 0)
	case 'D': // CUB
		s.MoveCursorRelative(-n, 0)
	case 'E': // CNL
		s.CarriageReturn()
		s.MoveCursorRelative(0, n)
	case 'F': // CPL
		s.CarriageReturn()
		s.MoveCursorRelative(0, -n)
	case 'G', '`': // CHA, HPA
		s.MoveCursorColumn(n - 1)
	case 'H', 'f': // CUP, HVP
		s.MoveCursor(p.param(1, 1)-1, n-1)
	case 'd': // VPA
		s.MoveCursorRow(n - 1)
	case 'J': // ED
		p.eraseDisplay(p.param(0, 0))
	case 'K': // EL
		switch p.param(0, 0) {
		case 0:
			s.ClearLineRight()
		case 1:
			s.ClearLineLeft()
		case 2:
			s.ClearLine()
		}
	case 'L': // IL
		s.InsertLines(n)
	case 'M': // DL
		s.DeleteLines(n)
	case '@': // ICH
		s.InsertChars(n)
	case 'P': // DCH
		s.DeleteChars(n)
	case 'X': // ECH
		s.EraseChars(n)
	case 'S': // SU
		s.ScrollUp(n)
	case 'T': // SD
		s.ScrollDown(n)
	case 'r': // DECSTBM
		s.SetScrollRegion(n-1, p.param(1, s.Height())-1)
	case 's': // SCOSC
		s.SaveCursor()
	case 'u': // SCORC
		s.RestoreCursor()
	case 'm', 'n', 'c', 'h', 'l', 't', 'q':
		// SGR, device reports and window ops carry no text.
	default:
		p.unknown(p.describeCSI(final))
	}
}

func (p *Parser) eraseDisplay(mode int) {
	switch mode {
	case 0:
		p.screen.ClearScreenBelow()
	case 1:
		p.screen.ClearScreenAbove()
	case 2:
		p.screen.ClearScreen()
	case 3:
		p.screen.ClearScrollback()
	}
}

func (p *Parser) handlePrivateMode(set bool) {
	for _, mode := range p.params {
		switch mode {
		case 6: // DECOM
			p.screen.SetOriginMode(set)
		case 7: // DECAWM
			p.screen.SetAutoWrap(set)
		case 25: // DECTCEM
			p.screen.SetCursorVisible(set)
		case 47, 1047:
			p.switchBuffer(set, false)
		case 1048:
			if set {
				p.screen.SaveCursor()
			} else {
				p.screen.RestoreCursor()
			}
		case 1049:
			p.switchBuffer(set, true)
		}
	}
}

func (p *Parser) switchBuffer(alternate, cursor bool) {
	if alternate {
		p.screen.EnterAlternate(cursor)
		return
	}
	p.screen.ExitAlternate(cursor)
}

func (p *Parser) handleOSC() {
	cmdText, value, _ := strings.Cut(string(p.osc), ";")
	cmd, err := strconv.Atoi(cmdText)
	if err != nil {
		return
	}

	switch cmd {
	case 0, 2:
		if p.onTitle != nil {
			p.onTitle(value)
		}
	case 1:
	default:
		if p.onOSC != nil {
			p.onOSC(cmd, value)
		}
	}
}

func (p *Parser) unknown(seq string) {
	if p.onUnknown != nil {
		p.onUnknown(seq)
	}
}

func (p *Parser) describeCSI(final byte) string {
	parts := make([]string, len(p.params))
	for i, v := range p.params {
		parts[i] = strconv.Itoa(v)
	}
	return "CSI " + string(p.inter) + strings.Join(parts, ";") + string(final)
}

// param returns parameter index, or def when it is missing or zero.
func (p *Parser) param(index, def int) int {
	if index < len(p.params) && p.params[index] > 0 {
		return p.params[index]
	}
	return def
}
