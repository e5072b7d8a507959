package core

import "testing"

func TestClassifyResistanceBoundaries(t *testing.T) {
	cases := []struct {
		resistanceMO int
		want         HeatingElementStatus
	}{
		{499, HeatingShorted},
		{500, HeatingLowResistance},
		{1499, HeatingLowResistance},
		{1500, HeatingOK},
		{2500, HeatingOK},
		{2501, HeatingHighResistance},
		{100000, HeatingHighResistance},
		{100001, HeatingBroken},
	}

	for _, c := range cases {
		got := classifyResistance(c.resistanceMO)
		if got != c.want {
			t.Errorf("classifyResistance(%d) = %s, want %s", c.resistanceMO, got, c.want)
		}
	}
}
