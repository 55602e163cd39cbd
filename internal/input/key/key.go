// Package key defines the key event model shared by every pipeline stage:
// keycodes, press/release switches, and timestamped events.
package key

import "fmt"

// Code identifies a physical key. Values follow the Linux input event
// keycode space, but the pipeline treats them as opaque identifiers.
type Code uint32

// Common keycodes, named after their Linux input event counterparts.
const (
	CodeEsc        Code = 1
	Code1          Code = 2
	Code2          Code = 3
	Code3          Code = 4
	Code4          Code = 5
	Code5          Code = 6
	Code6          Code = 7
	Code7          Code = 8
	Code8          Code = 9
	Code9          Code = 10
	Code0          Code = 11
	CodeMinus      Code = 12
	CodeEqual      Code = 13
	CodeBackspace  Code = 14
	CodeTab        Code = 15
	CodeQ          Code = 16
	CodeW          Code = 17
	CodeE          Code = 18
	CodeR          Code = 19
	CodeT          Code = 20
	CodeY          Code = 21
	CodeU          Code = 22
	CodeI          Code = 23
	CodeO          Code = 24
	CodeP          Code = 25
	CodeLeftBrace  Code = 26
	CodeRightBrace Code = 27
	CodeEnter      Code = 28
	CodeLeftCtrl   Code = 29
	CodeA          Code = 30
	CodeS          Code = 31
	CodeD          Code = 32
	CodeF          Code = 33
	CodeG          Code = 34
	CodeH          Code = 35
	CodeJ          Code = 36
	CodeK          Code = 37
	CodeL          Code = 38
	CodeSemicolon  Code = 39
	CodeApostrophe Code = 40
	CodeGrave      Code = 41
	CodeLeftShift  Code = 42
	CodeBackslash  Code = 43
	CodeZ          Code = 44
	CodeX          Code = 45
	CodeC          Code = 46
	CodeV          Code = 47
	CodeB          Code = 48
	CodeN          Code = 49
	CodeM          Code = 50
	CodeComma      Code = 51
	CodeDot        Code = 52
	CodeSlash      Code = 53
	CodeRightShift Code = 54
	CodeLeftAlt    Code = 56
	CodeSpace      Code = 57
	CodeCapsLock   Code = 58
	CodeF1         Code = 59
	CodeF2         Code = 60
	CodeF3         Code = 61
	CodeF4         Code = 62
	CodeF5         Code = 63
	CodeF6         Code = 64
	CodeF7         Code = 65
	CodeF8         Code = 66
	CodeF9         Code = 67
	CodeF10        Code = 68
	CodeF11        Code = 87
	CodeF12        Code = 88
	CodeKPEnter    Code = 96
	CodeRightCtrl  Code = 97
	CodeRightAlt   Code = 100
	CodeHome       Code = 102
	CodeUp         Code = 103
	CodePageUp     Code = 104
	CodeLeft       Code = 105
	CodeRight      Code = 106
	CodeEnd        Code = 107
	CodeDown       Code = 108
	CodePageDown   Code = 109
	CodeInsert     Code = 110
	CodeDelete     Code = 111
	CodeMute       Code = 113
	CodeVolumeDown Code = 114
	CodeVolumeUp   Code = 115
	CodeLeftMeta   Code = 125
	CodeRightMeta  Code = 126
	CodeCompose    Code = 127
)

// String returns the canonical name for the code, or a numeric form for
// codes without one.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("key%d", uint32(c))
}
