package terminal

import (
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 8

// ScreenOption configures a Screen.
type ScreenOption func(*Screen)

// WithScrollback sets how many rows the history retains.
func WithScrollback(lines int) ScreenOption {
	return func(s *Screen) {
		if lines > 0 {
			s.scrollback = lines
		}
	}
}

// WithMaxMarkers caps the number of live markers.
func WithMaxMarkers(n int) ScreenOption {
	return func(s *Screen) {
		if n > 0 {
			s.maxMarkers = n
		}
	}
}

// Screen is the terminal screen buffer.
//
// The normal buffer is the scrollback History followed by the visible rows.
// Rows are addressed by absolute index: the first visible row sits at BaseY,
// which grows by one for every row pushed into history and never shrinks.
// The alternate buffer has no history and starts at 0.
type Screen struct {
	mu sync.RWMutex

	width  int
	height int
	lines  []*Line // visible rows of the active buffer

	// Visible rows of the normal buffer while the alternate one is active.
	normal    []*Line
	altActive bool

	history      *History
	scrollback   int
	scrollOffset int // rows the viewport is scrolled up from the bottom

	cursorX int
	cursorY int

	cursorVisible bool

	scrollTop    int
	scrollBottom int

	savedX, savedY       int
	altSavedX, altSavedY int

	originMode bool // DECOM
	autoWrap   bool // DECAWM

	markers    *markerSet
	maxMarkers int
}

// NewScreen creates a screen of the given size.
func NewScreen(width, height int, opts ...ScreenOption) *Screen {
	if width < 1 {
		width = 80
	}
	if height < 1 {
		height = 24
	}

	s := &Screen{
		width:         width,
		height:        height,
		cursorVisible: true,
		scrollBottom:  height - 1,
		autoWrap:      true,
		scrollback:    DefaultScrollback,
		maxMarkers:    DefaultMaxMarkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lines = blankRows(width, height)
	s.history = NewHistory(s.scrollback)
	s.markers = newMarkerSet(s.maxMarkers)
	return s
}

func blankRows(width, height int) []*Line {
	rows := make([]*Line, height)
	for i := range rows {
		rows[i] = NewLine(width)
	}
	return rows
}

// Width returns the screen width.
func (s *Screen) Width() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width
}

// Height returns the screen height.
func (s *Screen) Height() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.height
}

// CursorPos returns the cursor position relative to the visible rows.
func (s *Screen) CursorPos() (x, y int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursorX, s.cursorY
}

// CursorVisible returns whether the cursor is visible.
func (s *Screen) CursorVisible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursorVisible
}

// IsAlternate reports whether the alternate buffer is active.
func (s *Screen) IsAlternate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.altActive
}

// BaseY returns the absolute index of the first visible row.
func (s *Screen) BaseY() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseYLocked()
}

// HistoryLen returns the number of retained scrollback rows.
func (s *Screen) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Len()
}

// Row returns the text of visible row y without trailing blanks.
func (s *Screen) Row(y int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if y < 0 || y >= s.height {
		return ""
	}
	return s.lines[y].String()
}

// Cell returns the cell at the given visible position.
func (s *Screen) Cell(x, y int) Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return EmptyCell()
	}
	return s.lines[y].Cells[x]
}

func (s *Screen) baseYLocked() int {
	if s.altActive {
		return 0
	}
	return s.history.End()
}

func (s *Screen) viewportYLocked() int {
	if s.altActive {
		return 0
	}
	return s.history.End() - s.scrollOffset
}

// lineAtLocked returns the row at absolute index, or nil if it is not
// retained.
func (s *Screen) lineAtLocked(index int) *Line {
	base := s.baseYLocked()
	if index < base {
		if s.altActive {
			return nil
		}
		return s.history.Line(index)
	}
	if row := index - base; row < s.height {
		return s.lines[row]
	}
	return nil
}

// WriteRune writes a rune at the cursor and advances it.
func (s *Screen) WriteRune(r rune) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeRuneLocked(r)
}

func (s *Screen) writeRuneLocked(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 || w > s.width {
		return
	}

	if s.cursorX+w > s.width {
		if s.autoWrap {
			s.cursorX = 0
			s.lineFeedLocked()
			s.lines[s.cursorY].Wrapped = true
		} else {
			s.cursorX = s.width - w
		}
	}

	line := s.lines[s.cursorY]
	line.Cells[s.cursorX] = Cell{Rune: r, Width: w}
	if w == 2 {
		line.Cells[s.cursorX+1] = Cell{Width: 0}
	}
	s.cursorX += w
}

// MoveCursor moves the cursor to the given position.
func (s *Screen) MoveCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveCursorLocked(x, y)
}

func (s *Screen) moveCursorLocked(x, y int) {
	if x < 0 {
		x = 0
	}
	if x >= s.width {
		x = s.width - 1
	}

	top := 0
	bottom := s.height - 1
	if s.originMode {
		top = s.scrollTop
		bottom = s.scrollBottom
		y += top
	}
	if y < top {
		y = top
	}
	if y > bottom {
		y = bottom
	}

	s.cursorX = x
	s.cursorY = y
}

// MoveCursorRelative moves the cursor by the given delta.
func (s *Screen) MoveCursorRelative(dx, dy int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	y := s.cursorY + dy
	if s.originMode {
		y -= s.scrollTop
	}
	s.moveCursorLocked(s.cursorX+dx, y)
}

// MoveCursorColumn moves the cursor to column x on the current row.
func (s *Screen) MoveCursorColumn(x int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 {
		x = 0
	}
	if x >= s.width {
		x = s.width - 1
	}
	s.cursorX = x
}

// MoveCursorRow moves the cursor to row y, keeping the column.
func (s *Screen) MoveCursorRow(y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveCursorLocked(s.cursorX, y)
}

// Tab moves the cursor to the next tab stop.
func (s *Screen) Tab() {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := (s.cursorX/tabWidth + 1) * tabWidth
	if next >= s.width {
		next = s.width - 1
	}
	s.cursorX = next
}

// CarriageReturn moves the cursor to the start of the row.
func (s *Screen) CarriageReturn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorX = 0
}

// LineFeed moves the cursor down one row, scrolling at the bottom of the
// scroll region.
func (s *Screen) LineFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineFeedLocked()
}

func (s *Screen) lineFeedLocked() {
	switch {
	case s.cursorY == s.scrollBottom:
		s.scrollUpLocked(1, true)
	case s.cursorY < s.height-1:
		s.cursorY++
	}
}

// ReverseLineFeed moves the cursor up one row, scrolling at the top of the
// scroll region.
func (s *Screen) ReverseLineFeed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.cursorY == s.scrollTop:
		s.scrollDownLocked(1)
	case s.cursorY > 0:
		s.cursorY--
	}
}

// ScrollUp scrolls the scroll region up by n rows.
func (s *Screen) ScrollUp(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollUpLocked(n, false)
}

// scrollUpLocked scrolls the region up. With toHistory, rows leaving a
// full-screen region of the normal buffer move into the history.
func (s *Screen) scrollUpLocked(n int, toHistory bool) {
	top, bottom, ok := s.regionLocked()
	if n <= 0 || !ok {
		return
	}
	if size := bottom - top + 1; n > size {
		n = size
	}

	if toHistory && !s.altActive && top == 0 && bottom == s.height-1 {
		s.pushHistoryLocked(s.lines[:n])
	}

	for y := top; y <= bottom-n; y++ {
		s.lines[y] = s.lines[y+n]
	}
	for y := bottom - n + 1; y <= bottom; y++ {
		s.lines[y] = NewLine(s.width)
	}
}

// pushHistoryLocked moves rows into the history, keeps a scrolled viewport
// anchored on the same rows, and disposes markers on evicted rows.
func (s *Screen) pushHistoryLocked(rows []*Line) {
	evicted := 0
	for _, line := range rows {
		evicted += s.history.Push(line)
	}
	if s.scrollOffset > 0 {
		s.scrollOffset += len(rows)
		s.clampViewportLocked()
	}
	if evicted > 0 {
		start := s.history.Start()
		s.markers.disposeWhere(func(line int) bool { return line < start })
	}
}

// ScrollDown scrolls the scroll region down by n rows.
func (s *Screen) ScrollDown(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollDownLocked(n)
}

func (s *Screen) scrollDownLocked(n int) {
	top, bottom, ok := s.regionLocked()
	if n <= 0 || !ok {
		return
	}
	if size := bottom - top + 1; n > size {
		n = size
	}

	for y := bottom; y >= top+n; y-- {
		s.lines[y] = s.lines[y-n]
	}
	for y := top; y < top+n; y++ {
		s.lines[y] = NewLine(s.width)
	}
}

func (s *Screen) regionLocked() (top, bottom int, ok bool) {
	top, bottom = s.scrollTop, s.scrollBottom
	if top < 0 {
		top = 0
	}
	if bottom >= len(s.lines) {
		bottom = len(s.lines) - 1
	}
	return top, bottom, top <= bottom
}

// SetScrollRegion sets the scroll region and homes the cursor.
func (s *Screen) SetScrollRegion(top, bottom int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if top < 0 {
		top = 0
	}
	if bottom >= s.height {
		bottom = s.height - 1
	}
	if top >= bottom {
		return
	}

	s.scrollTop = top
	s.scrollBottom = bottom
	s.cursorX = 0
	if s.originMode {
		s.cursorY = top
	} else {
		s.cursorY = 0
	}
}

// ResetScrollRegion resets the scroll region to the full screen.
func (s *Screen) ResetScrollRegion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollTop = 0
	s.scrollBottom = s.height - 1
}

// ClearScreen blanks every visible row.
func (s *Screen) ClearScreen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.lines {
		line.Clear()
	}
}

// ClearScreenAbove blanks from the top of the screen to the cursor.
func (s *Screen) ClearScreenAbove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for y := 0; y < s.cursorY; y++ {
		s.lines[y].Clear()
	}
	s.lines[s.cursorY].ClearRange(0, s.cursorX+1)
}

// ClearScreenBelow blanks from the cursor to the bottom of the screen.
func (s *Screen) ClearScreenBelow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[s.cursorY].ClearRange(s.cursorX, s.width)
	for y := s.cursorY + 1; y < s.height; y++ {
		s.lines[y].Clear()
	}
}

// ClearScrollback drops the history. Markers anchored in it are disposed.
func (s *Screen) ClearScrollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearHistoryLocked()
}

func (s *Screen) clearHistoryLocked() {
	s.scrollOffset = 0
	if s.history.Clear() == 0 {
		return
	}
	start := s.history.Start()
	s.markers.disposeWhere(func(line int) bool { return line < start })
}

// ClearLine blanks the cursor row.
func (s *Screen) ClearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[s.cursorY].Clear()
}

// ClearLineLeft blanks from the start of the row to the cursor.
func (s *Screen) ClearLineLeft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[s.cursorY].ClearRange(0, s.cursorX+1)
}

// ClearLineRight blanks from the cursor to the end of the row.
func (s *Screen) ClearLineRight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[s.cursorY].ClearRange(s.cursorX, s.width)
}

// InsertLines inserts n blank rows at the cursor, pushing rows below down.
func (s *Screen) InsertLines(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursorY < s.scrollTop || s.cursorY > s.scrollBottom {
		return
	}
	oldTop := s.scrollTop
	s.scrollTop = s.cursorY
	s.scrollDownLocked(n)
	s.scrollTop = oldTop
}

// DeleteLines deletes n rows at the cursor, pulling rows below up.
func (s *Screen) DeleteLines(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursorY < s.scrollTop || s.cursorY > s.scrollBottom {
		return
	}
	oldTop := s.scrollTop
	s.scrollTop = s.cursorY
	s.scrollUpLocked(n, false)
	s.scrollTop = oldTop
}

// InsertChars inserts n blank cells at the cursor.
func (s *Screen) InsertChars(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || s.cursorX >= s.width {
		return
	}
	if limit := s.width - s.cursorX; n > limit {
		n = limit
	}
	line := s.lines[s.cursorY]
	for x := s.width - 1; x >= s.cursorX+n; x-- {
		line.Cells[x] = line.Cells[x-n]
	}
	line.ClearRange(s.cursorX, s.cursorX+n)
}

// DeleteChars deletes n cells at the cursor, shifting the rest left.
func (s *Screen) DeleteChars(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || s.cursorX >= s.width {
		return
	}
	if limit := s.width - s.cursorX; n > limit {
		n = limit
	}
	line := s.lines[s.cursorY]
	for x := s.cursorX; x < s.width-n; x++ {
		line.Cells[x] = line.Cells[x+n]
	}
	line.ClearRange(s.width-n, s.width)
}

// EraseChars blanks n cells at the cursor.
func (s *Screen) EraseChars(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[s.cursorY].ClearRange(s.cursorX, s.cursorX+n)
}

// SaveCursor saves the cursor position.
func (s *Screen) SaveCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedX = s.cursorX
	s.savedY = s.cursorY
}

// RestoreCursor restores the saved cursor position.
func (s *Screen) RestoreCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorX = s.savedX
	s.cursorY = s.savedY
	s.clampCursorLocked()
}

// SetCursorVisible sets cursor visibility.
func (s *Screen) SetCursorVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursorVisible = visible
}

// SetOriginMode sets origin mode (cursor relative to the scroll region).
func (s *Screen) SetOriginMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originMode = enabled
}

// SetAutoWrap sets auto-wrap mode.
func (s *Screen) SetAutoWrap(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoWrap = enabled
}

// EnterAlternate switches to a blank alternate buffer. With saveCursor the
// cursor is saved first and restored by ExitAlternate.
func (s *Screen) EnterAlternate(saveCursor bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.altActive {
		return
	}
	if saveCursor {
		s.altSavedX, s.altSavedY = s.cursorX, s.cursorY
	}
	s.normal = s.lines
	s.lines = blankRows(s.width, s.height)
	s.altActive = true
	s.scrollOffset = 0
}

// ExitAlternate switches back to the normal buffer, dropping the alternate
// rows.
func (s *Screen) ExitAlternate(restoreCursor bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitAlternateLocked(restoreCursor)
}

func (s *Screen) exitAlternateLocked(restoreCursor bool) {
	if !s.altActive {
		return
	}
	s.lines = s.normal
	s.normal = nil
	s.altActive = false
	if restoreCursor {
		s.cursorX, s.cursorY = s.altSavedX, s.altSavedY
		s.clampCursorLocked()
	}
}

// ScrollViewport scrolls the viewport by delta rows; positive scrolls up
// into history. The offset is clamped to the retained history.
func (s *Screen) ScrollViewport(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.altActive {
		return
	}
	s.scrollOffset += delta
	s.clampViewportLocked()
}

// ScrollToBottom returns the viewport to the live rows.
func (s *Screen) ScrollToBottom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrollOffset = 0
}

// ViewportOffset returns how many rows the viewport is scrolled up.
func (s *Screen) ViewportOffset() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scrollOffset
}

func (s *Screen) clampViewportLocked() {
	if s.scrollOffset < 0 {
		s.scrollOffset = 0
	}
	if limit := s.history.Len(); s.scrollOffset > limit {
		s.scrollOffset = limit
	}
}

// RegisterMarker anchors a marker at the cursor row plus offset. It refuses
// on the alternate buffer, outside the retained rows, and when the marker
// limit is reached.
func (s *Screen) RegisterMarker(offset int) (*Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registerMarkerLocked(offset)
}

// registerMarkerLocked needs at least the read lock.
func (s *Screen) registerMarkerLocked(offset int) (*Marker, bool) {
	if s.altActive {
		return nil, false
	}
	line := s.history.End() + s.cursorY + offset
	if line < s.history.Start() || line >= s.history.End()+s.height {
		return nil, false
	}
	return s.markers.add(line)
}

// LiveMarkers returns the number of markers that are not disposed.
func (s *Screen) LiveMarkers() int {
	return s.markers.live()
}

// Resize resizes both buffers. When the normal buffer shrinks below the
// cursor, the top rows move into history; rows cut off at the bottom are
// dropped and markers on them disposed.
func (s *Screen) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	if s.altActive {
		s.normal, _ = s.fitRowsLocked(s.normal, width, height, 0, false)
		s.lines, s.cursorY = s.fitRowsLocked(s.lines, width, height, s.cursorY, false)
	} else {
		s.lines, s.cursorY = s.fitRowsLocked(s.lines, width, height, s.cursorY, true)
	}
	s.width = width
	s.height = height

	end := s.history.End() + height
	s.markers.disposeWhere(func(line int) bool { return line >= end })

	s.scrollTop = 0
	s.scrollBottom = height - 1
	s.clampCursorLocked()
	s.clampViewportLocked()
	if s.savedX >= width {
		s.savedX = width - 1
	}
	if s.savedY >= height {
		s.savedY = height - 1
	}
}

// fitRowsLocked resizes rows to width by height. With keep, rows above a
// cursor that would fall off the bottom move into history first.
func (s *Screen) fitRowsLocked(rows []*Line, width, height, cursorY int, keep bool) ([]*Line, int) {
	if keep && cursorY >= height {
		n := cursorY - height + 1
		s.pushHistoryLocked(rows[:n])
		rows = rows[n:]
		cursorY -= n
	}

	out := make([]*Line, height)
	for y := range out {
		if y < len(rows) && rows[y] != nil {
			out[y] = rows[y].resized(width)
		} else {
			out[y] = NewLine(width)
		}
	}
	return out, cursorY
}

func (s *Screen) clampCursorLocked() {
	if s.cursorX < 0 {
		s.cursorX = 0
	}
	if s.cursorX >= s.width {
		s.cursorX = s.width - 1
	}
	if s.cursorY < 0 {
		s.cursorY = 0
	}
	if s.cursorY >= s.height {
		s.cursorY = s.height - 1
	}
}

// Reset returns the screen to its initial state, dropping the history and
// the alternate buffer.
func (s *Screen) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exitAlternateLocked(false)
	for _, line := range s.lines {
		line.Clear()
	}
	s.clearHistoryLocked()

	s.cursorX = 0
	s.cursorY = 0
	s.cursorVisible = true
	s.scrollTop = 0
	s.scrollBottom = s.height - 1
	s.originMode = false
	s.autoWrap = true
}

// GetText returns the visible rows without trailing blanks.
func (s *Screen) GetText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]string, len(s.lines))
	for y, line := range s.lines {
		rows[y] = line.String()
	}
	return strings.Join(rows, "\n")
}

// HistoryText returns the retained scrollback as logical lines.
func (s *Screen) HistoryText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.GetText()
}
