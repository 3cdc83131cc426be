// SPDX-License-Identifier: MIT
//
// Package utils holds signal generators shared by the package tests. Samples
// are 16-bit PCM, the format the capture sources deliver.
package utils

import "math"

// GenerateSineWave returns size samples of a sine at frequency Hz scaled to
// amplitude (0..1 of full scale).
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = toPCM(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = toPCM(signal * 0.9)
	}
	return buffer
}

// GenerateSilence returns size zero samples.
func GenerateSilence(size int) []int16 {
	return make([]int16, size)
}

// FindPeakBin returns the index of the largest value in values[startBin:endBin+1].
func FindPeakBin(values []float64, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}
	return peakBin
}

func toPCM(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(v * math.MaxInt16)
}
