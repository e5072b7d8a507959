package core

import "testing"

func TestPresetDefaults(t *testing.T) {
	p := NewPreset()
	if !p.IsStandby() {
		t.Fatalf("expected new preset to start in standby")
	}
	if got := p.GetTemperature(); got != 0 {
		t.Fatalf("expected standby temperature 0, got %d", got)
	}
	if got := p.GetSelected(); got != 0 {
		t.Fatalf("expected default selected preset 0, got %d", got)
	}
	if p.IsEditing() {
		t.Fatalf("expected no preset under edit initially")
	}
	if got := p.GetPreset(0); got != 300000 {
		t.Fatalf("expected preset 0 default 300000, got %d", got)
	}
	if got := p.GetPreset(1); got != 250000 {
		t.Fatalf("expected preset 1 default 250000, got %d", got)
	}
}

func TestPresetSelectValidation(t *testing.T) {
	p := NewPreset()
	p.Select(1)
	if p.IsStandby() {
		t.Fatalf("select should clear standby")
	}
	if got := p.GetSelected(); got != 1 {
		t.Fatalf("expected selected 1, got %d", got)
	}

	// Out-of-range selections must be rejected, not silently wrap.
	p.Select(-1)
	if got := p.GetSelected(); got != 1 {
		t.Fatalf("out-of-range select should be a no-op, got %d", got)
	}
	p.Select(NPresets)
	if got := p.GetSelected(); got != 1 {
		t.Fatalf("out-of-range select should be a no-op, got %d", got)
	}
}

func TestPresetEditRoundTrip(t *testing.T) {
	p := NewPreset()
	before := p.GetPreset(1)
	p.EditSelect(1)
	if !p.IsEditingPreset(1) {
		t.Fatalf("expected preset 1 to be under edit")
	}
	p.EditAdd(5000)
	p.EditEnd()
	if p.IsEditing() {
		t.Fatalf("expected editing to be cleared")
	}
	if got := p.GetPreset(1); got != before+5000 {
		t.Fatalf("expected %d, got %d", before+5000, got)
	}
}

func TestPresetEditClamp(t *testing.T) {
	p := NewPreset()
	p.EditSelect(0)
	p.EditAdd(1_000_000)
	p.EditEnd()
	if got := p.GetPreset(0); got != 400000 {
		t.Fatalf("expected clamp to 400000, got %d", got)
	}

	p.EditSelect(0)
	p.EditAdd(-1_000_000)
	p.EditEnd()
	if got := p.GetPreset(0); got != 20000 {
		t.Fatalf("expected clamp to 20000, got %d", got)
	}
}

func TestPresetEditAddNoOpWithoutSelection(t *testing.T) {
	p := NewPreset()
	before := p.GetPreset(0)
	p.EditAdd(1000)
	if got := p.GetPreset(0); got != before {
		t.Fatalf("edit_add without edit_select must be a no-op, got %d want %d", got, before)
	}
}
