package passes

import (
	"testing"

	"tinytc/internal/deviceinfo"
	"tinytc/internal/ir"
)

func TestMaxRegisterBlockGemm(t *testing.T) {
	cases := []struct {
		scalarSize, sgs, regSpace uint32
		want                      RegisterBlock
	}{
		{4, 16, 8192, RegisterBlock{2, 19}},
		{4, 16, 16384, RegisterBlock{2, 44}},
		{4, 32, 8192, RegisterBlock{1, 19}},
		{4, 32, 16384, RegisterBlock{1, 44}},
		{8, 16, 8192, RegisterBlock{1, 16}},
		{8, 16, 16384, RegisterBlock{2, 19}},
	}
	for _, c := range cases {
		got := MaxRegisterBlockGemm(c.scalarSize, c.sgs, c.regSpace)
		if got != c.want {
			t.Errorf("MaxRegisterBlockGemm(%d, %d, %d) = %+v, want %+v",
				c.scalarSize, c.sgs, c.regSpace, got, c.want)
		}
	}
}

func TestSuggestLocalTiling(t *testing.T) {
	info := deviceinfo.NewIntelPVCInfo()
	info.CoreFeatures = uint32(ir.FeatureLargeRegisterFile)
	ctx := ir.NewContext(nil)
	f64 := ctx.F64()

	cases := []struct {
		m, n int64
		sgs  uint32
		want Tiling
	}{
		{1, 1, 16, Tiling{1, 1}},
		{16, 32, 16, Tiling{1, 2}},
		{84, 56, 32, Tiling{2, 2}},
		{128, 128, 32, Tiling{4, 4}},
		{256, 128, 32, Tiling{8, 4}},
		{256, 256, 32, Tiling{4, 8}},
		{512, 512, 32, Tiling{4, 8}},
		{16123, 9, 32, Tiling{32, 1}},
		{461, 283, 32, Tiling{4, 8}},
		{ir.Dynamic, ir.Dynamic, 16, Tiling{4, 8}},
	}
	for _, c := range cases {
		cfg := info.GetCoreConfig(c.sgs)
		got := SuggestLocalTiling(BlasShape{Element: f64, M: c.m, N: c.n}, cfg)
		if got != c.want {
			t.Errorf("SuggestLocalTiling(%dx%d, sgs=%d) = %+v, want %+v", c.m, c.n, c.sgs, got, c.want)
		}
		if items := got.NumberOfWorkItems(c.sgs); items > cfg.MaxNumberOfWorkItems {
			t.Errorf("tiling %+v uses %d work items, budget is %d", got, items, cfg.MaxNumberOfWorkItems)
		}
	}
}
