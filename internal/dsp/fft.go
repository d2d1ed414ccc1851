package dsp

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTShift reorders FFT output so the zero-frequency bin sits at the array
// center, matching how frequency responses are read and compared.
func FFTShift(data []complex128) []complex128 {
	n := len(data)
	if n == 0 {
		return []complex128{}
	}
	half := n / 2
	shifted := make([]complex128, 0, n)
	shifted = append(shifted, data[half:]...)
	shifted = append(shifted, data[:half]...)
	return shifted
}

// Spectrum computes the frequency-centered complex spectrum of the input.
func Spectrum(samples []complex128) []complex128 {
	if len(samples) == 0 {
		return []complex128{}
	}
	coeffs := fourier.NewCmplxFFT(len(samples)).Coefficients(nil, samples)
	return FFTShift(coeffs)
}

// ShiftedBinFrequency returns the baseband frequency (Hz) of bin i in a
// frequency-centered spectrum of size n.
func ShiftedBinFrequency(i, n int, sampleRate float64) float64 {
	return (float64(i) - float64(n/2)) * sampleRate / float64(n)
}
