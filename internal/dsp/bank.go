// SPDX-License-Identifier: MIT
package dsp

// FilterBank holds the per-device smoothing state that effects read and
// update. It is sized from the band count and pixel count and rebuilt whenever
// the pixel count changes.
type FilterBank struct {
	// Gain tracks the loudest band for the Energy effect.
	Gain *ExpFilter

	// Per-channel smoothing at half the strip length.
	R *ExpFilter
	G *ExpFilter
	B *ExpFilter

	// CommonMode follows the mean level slowly so Spectrum can remove it.
	CommonMode *ExpFilter

	// PrevSpectrum is the previous half-strip spectrum, for frame differences.
	PrevSpectrum []float64

	bands, pixels int
}

// NewFilterBank seeds every filter for a strip of pixels LEDs fed by bands
// mel bands.
func NewFilterBank(bands, pixels int) *FilterBank {
	half := pixels / 2
	return &FilterBank{
		Gain:         NewTiledExpFilter(0.01, bands, 0.001, 0.99),
		R:            NewTiledExpFilter(0.01, half, 0.2, 0.99),
		G:            NewTiledExpFilter(0.01, half, 0.05, 0.3),
		B:            NewTiledExpFilter(0.01, half, 0.1, 0.5),
		CommonMode:   NewTiledExpFilter(0.01, half, 0.99, 0.01),
		PrevSpectrum: make([]float64, half),
		bands:        bands,
		pixels:       pixels,
	}
}

// Pixels is the strip length the bank was sized for.
func (b *FilterBank) Pixels() int { return b.pixels }

// Bands is the mel band count the bank was sized for.
func (b *FilterBank) Bands() int { return b.bands }
