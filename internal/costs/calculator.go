// Package costs estimates what a call to the speech service will be billed.
package costs

// Rates are prices in cents. Synthesis is billed on UTF-8 bytes of input
// text, recognition on seconds of audio.
type Rates struct {
	SynthesisCentsPerMillionBytes float64
	TranscriptionCentsPerHour     float64
}

// DefaultRates are $15 per million bytes and $0.36 per audio hour.
func DefaultRates() Rates {
	return Rates{
		SynthesisCentsPerMillionBytes: 1500,
		TranscriptionCentsPerHour:     36,
	}
}

// Usage is the billable volume of one or more calls.
type Usage struct {
	SynthesisBytes       int     // UTF-8 bytes of synthesized text
	TranscriptionSeconds float64 // seconds of recognized audio
}

// Costs are in millicents (1/1000 of a cent) so single short calls do not
// round to zero.
type Costs struct {
	SynthesisMillicents     int
	TranscriptionMillicents int
	TotalMillicents         int
}

// TextUsage returns the synthesis usage of texts.
func TextUsage(texts ...string) Usage {
	var u Usage
	for _, t := range texts {
		u.SynthesisBytes += len(t)
	}
	return u
}

// Calculate estimates the cost of u at r.
func (r Rates) Calculate(u Usage) Costs {
	// Multiply before dividing to keep exact halves exact.
	synthesis := float64(u.SynthesisBytes) * r.SynthesisCentsPerMillionBytes / 1000
	transcription := u.TranscriptionSeconds * r.TranscriptionCentsPerHour * 1000 / 3600

	c := Costs{
		SynthesisMillicents:     roundToInt(synthesis),
		TranscriptionMillicents: roundToInt(transcription),
	}
	c.TotalMillicents = c.SynthesisMillicents + c.TranscriptionMillicents

	return c
}

// roundToInt rounds a float to the nearest integer.
func roundToInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
