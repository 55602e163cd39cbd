package button

import (
	"testing"
	"time"

	"github.com/dshills/keywarp/internal/input/key"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		b       *Button
		wantErr bool
	}{
		{"emit", Emit(key.CodeA), false},
		{"trans", Trans(), false},
		{"block", Block(), false},
		{"layer toggle", LayerToggle("nav"), false},
		{"layer toggle empty", LayerToggle(""), true},
		{"layer switch empty", LayerSwitch(""), true},
		{"tap next", TapNext(Emit(key.CodeA), Emit(key.CodeB)), false},
		{"tap next missing branch", TapNext(Emit(key.CodeA), nil), true},
		{"tap hold", TapHold(200*time.Millisecond, Emit(key.CodeA), Emit(key.CodeB)), false},
		{"tap hold zero delay", TapHold(0, Emit(key.CodeA), Emit(key.CodeB)), true},
		{
			"multi tap",
			MultiTap([]TapStep{{Gap: 100 * time.Millisecond, Button: Emit(key.CodeA)}}, Emit(key.CodeB)),
			false,
		},
		{"multi tap no steps", MultiTap(nil, Emit(key.CodeB)), true},
		{
			"multi tap zero gap",
			MultiTap([]TapStep{{Button: Emit(key.CodeA)}}, Emit(key.CodeB)),
			true,
		},
		{
			"multi tap no last",
			MultiTap([]TapStep{{Gap: time.Millisecond, Button: Emit(key.CodeA)}}, nil),
			true,
		},
		{"around", Around(Emit(key.CodeLeftShift), Emit(key.CodeA)), false},
		{"around missing half", Around(nil, Emit(key.CodeA)), true},
		{"macro", TapMacro(Emit(key.CodeH), Emit(key.CodeI)), false},
		{"macro empty", TapMacro(), true},
		{"compose", ComposeSeq(key.CodeCompose, Emit(key.CodeE)), false},
		{"compose empty", ComposeSeq(key.CodeCompose), true},
		{"script nil runner", Script(nil), true},
		{
			"nested invalid",
			TapNext(Emit(key.CodeA), Around(nil, Emit(key.CodeB))),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindEmit, "emit"},
		{KindTapNext, "tap-next"},
		{KindTapHold, "tap-hold"},
		{KindMultiTap, "multi-tap"},
		{KindComposeSeq, "compose"},
		{KindTrans, "trans"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestBEnvAlternation(t *testing.T) {
	env := NewBEnv(Block())

	if env.Down() {
		t.Fatal("new BEnv should be up")
	}
	if !env.Press(nil) {
		t.Fatal("first press should run")
	}
	if env.Press(nil) {
		t.Error("second press without release should be refused")
	}
	if !env.Release(nil) {
		t.Fatal("release after press should run")
	}
	if env.Release(nil) {
		t.Error("release while up should be refused")
	}
	if !env.Press(nil) {
		t.Error("press after a full cycle should run")
	}
}
