// market/instruments.go
package market

import (
	"fmt"
	"strings"
)

// AssetClass groups instruments that share trading conventions.
type AssetClass int

const (
	Stock AssetClass = iota
	Future
	Crypto
	FX
)

var assetClassNames = map[AssetClass]string{
	Stock:  "stock",
	Future: "future",
	Crypto: "crypto",
	FX:     "fx",
}

func (c AssetClass) String() string {
	if s, ok := assetClassNames[c]; ok {
		return s
	}
	return fmt.Sprintf("AssetClass(%d)", int(c))
}

// Divisible reports whether quantities of this class may be fractional.
// Stocks and futures trade in whole units.
func (c AssetClass) Divisible() bool {
	return c == Crypto || c == FX
}

// ParseAssetClass maps a config string like "stock" or "crypto" to an AssetClass.
func ParseAssetClass(s string) (AssetClass, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	if want == "" {
		return Stock, nil
	}
	for c, name := range assetClassNames {
		if name == want {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown asset class %q", s)
}

// Instrument identifies something that can be traded. It is comparable and
// is used as a map key throughout the engine.
type Instrument struct {
	Ticker string
	Class  AssetClass
}

func NewInstrument(ticker string, class AssetClass) Instrument {
	return Instrument{Ticker: ticker, Class: class}
}

func (i Instrument) String() string {
	return i.Ticker
}
