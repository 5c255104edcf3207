package audio

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/harrylevesque/csms/internal/files"
)

const sampleRate = 22050

// Clip is a playable sound.
type Clip struct {
	Data        []byte
	ContentType string
	// Synthesized is true when no sound file was found.
	Synthesized bool
}

// Tone is a sine tone of Freq Hz lasting Duration seconds.
type Tone struct {
	Freq     float64
	Duration float64
}

// Alarm returns the alarm sound from path, or a 2500 Hz tone of 1.2 s.
func Alarm(path string) Clip {
	return load(path, []Tone{{2500, 1.2}})
}

// Success returns the login sound from path, or a rising two-tone chime.
func Success(path string) Clip {
	return load(path, []Tone{{880, 0.15}, {1320, 0.25}})
}

func load(path string, fallback []Tone) Clip {
	if a, err := files.ReadAsset(path); err == nil {
		return Clip{Data: a.Data, ContentType: a.ContentType}
	}
	return Clip{Data: WAV(fallback...), ContentType: "audio/wav", Synthesized: true}
}

// WAV renders tones back to back as 16-bit mono PCM.
func WAV(tones ...Tone) []byte {
	var samples []int16
	for _, t := range tones {
		n := int(math.Round(t.Duration * sampleRate))
		fade := sampleRate / 100
		for i := 0; i < n; i++ {
			amp := 0.5
			// short fades avoid clicks at Tone boundaries
			if i < fade {
				amp *= float64(i) / float64(fade)
			} else if n-i < fade {
				amp *= float64(n-i) / float64(fade)
			}
			v := amp * math.Sin(2*math.Pi*t.Freq*float64(i)/sampleRate)
			samples = append(samples, int16(v*math.MaxInt16))
		}
	}

	dataLen := uint32(len(samples) * 2)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataLen)
	binary.Write(&buf, binary.LittleEndian, samples)
	return buf.Bytes()
}
