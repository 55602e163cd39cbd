package key

import "strings"

// codeNames maps codes to their canonical layout-file names.
var codeNames = map[Code]string{
	CodeEsc:        "esc",
	Code1:          "1",
	Code2:          "2",
	Code3:          "3",
	Code4:          "4",
	Code5:          "5",
	Code6:          "6",
	Code7:          "7",
	Code8:          "8",
	Code9:          "9",
	Code0:          "0",
	CodeMinus:      "minus",
	CodeEqual:      "equal",
	CodeBackspace:  "backspace",
	CodeTab:        "tab",
	CodeQ:          "q",
	CodeW:          "w",
	CodeE:          "e",
	CodeR:          "r",
	CodeT:          "t",
	CodeY:          "y",
	CodeU:          "u",
	CodeI:          "i",
	CodeO:          "o",
	CodeP:          "p",
	CodeLeftBrace:  "lbrc",
	CodeRightBrace: "rbrc",
	CodeEnter:      "enter",
	CodeLeftCtrl:   "lctl",
	CodeA:          "a",
	CodeS:          "s",
	CodeD:          "d",
	CodeF:          "f",
	CodeG:          "g",
	CodeH:          "h",
	CodeJ:          "j",
	CodeK:          "k",
	CodeL:          "l",
	CodeSemicolon:  "semicolon",
	CodeApostrophe: "apostrophe",
	CodeGrave:      "grave",
	CodeLeftShift:  "lsft",
	CodeBackslash:  "backslash",
	CodeZ:          "z",
	CodeX:          "x",
	CodeC:          "c",
	CodeV:          "v",
	CodeB:          "b",
	CodeN:          "n",
	CodeM:          "m",
	CodeComma:      "comma",
	CodeDot:        "dot",
	CodeSlash:      "slash",
	CodeRightShift: "rsft",
	CodeLeftAlt:    "lalt",
	CodeSpace:      "space",
	CodeCapsLock:   "caps",
	CodeF1:         "f1",
	CodeF2:         "f2",
	CodeF3:         "f3",
	CodeF4:         "f4",
	CodeF5:         "f5",
	CodeF6:         "f6",
	CodeF7:         "f7",
	CodeF8:         "f8",
	CodeF9:         "f9",
	CodeF10:        "f10",
	CodeF11:        "f11",
	CodeF12:        "f12",
	CodeKPEnter:    "kpenter",
	CodeRightCtrl:  "rctl",
	CodeRightAlt:   "ralt",
	CodeHome:       "home",
	CodeUp:         "up",
	CodePageUp:     "pgup",
	CodeLeft:       "left",
	CodeRight:      "right",
	CodeEnd:        "end",
	CodeDown:       "down",
	CodePageDown:   "pgdn",
	CodeInsert:     "insert",
	CodeDelete:     "delete",
	CodeMute:       "mute",
	CodeVolumeDown: "voldn",
	CodeVolumeUp:   "volup",
	CodeLeftMeta:   "lmet",
	CodeRightMeta:  "rmet",
	CodeCompose:    "compose",
}

// nameCodes is the reverse of codeNames plus accepted aliases.
var nameCodes = func() map[string]Code {
	m := make(map[string]Code, len(codeNames)+16)
	for c, n := range codeNames {
		m[n] = c
	}
	// Aliases accepted in layout files.
	m["escape"] = CodeEsc
	m["return"] = CodeEnter
	m["ret"] = CodeEnter
	m["bspc"] = CodeBackspace
	m["spc"] = CodeSpace
	m["capslock"] = CodeCapsLock
	m["lctrl"] = CodeLeftCtrl
	m["rctrl"] = CodeRightCtrl
	m["lshift"] = CodeLeftShift
	m["rshift"] = CodeRightShift
	m["lmeta"] = CodeLeftMeta
	m["rmeta"] = CodeRightMeta
	m["scln"] = CodeSemicolon
	m["quot"] = CodeApostrophe
	m["cmp"] = CodeCompose
	return m
}()

// Lookup resolves a layout-file key name to a code.
func Lookup(name string) (Code, bool) {
	c, ok := nameCodes[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}
