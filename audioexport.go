package pianola

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// RenderSequence renders a sequence offline through the wave bank into an
// interleaved stereo float32 buffer at SampleRate. Scheduling matches the
// live path: note-ons start the note's waveform at the event's wall-clock
// position, note-offs cut it short, tempo changes apply from their tick
// onwards. Rendering is tick-accurate, not DSP-grade; it exists for the .wav
// export surface.
func RenderSequence(seq *Sequence, bank *WaveBank) ([]float32, error) {
	if seq == nil {
		return nil, fmt.Errorf("no sequence to render")
	}
	type segment struct {
		start int
		pcm   []float32
		end   int // -1 means the full waveform
	}
	var segments []segment
	open := make(map[byte]int) // note -> index into segments

	tempo := seq.Tempo
	tpq := seq.TicksPerQuarter
	var lastTick uint64
	var lastOffset float64 // seconds at lastTick
	seconds := func(tick uint64) float64 {
		return lastOffset + TimeFor(tick-lastTick, tempo, tpq).Seconds()
	}
	for _, ev := range seq.Events {
		at := int(seconds(ev.Tick) * SampleRate)
		switch ev.Message.Kind {
		case KindNoteOn:
			if i, ok := open[ev.Message.Note]; ok {
				segments[i].end = at // retrigger cuts the previous voice
			}
			pcm, ok := bank.Wave(ev.Message.Note)
			if !ok {
				continue
			}
			open[ev.Message.Note] = len(segments)
			segments = append(segments, segment{start: at, pcm: pcm, end: -1})
		case KindNoteOff:
			if i, ok := open[ev.Message.Note]; ok {
				segments[i].end = at
				delete(open, ev.Message.Note)
			}
		case KindTempo:
			lastOffset = seconds(ev.Tick)
			lastTick = ev.Tick
			tempo = ev.Message.Tempo
		}
	}

	var length int
	for i := range segments {
		end := segments[i].start + len(segments[i].pcm)
		if segments[i].end >= 0 && segments[i].end < end {
			end = segments[i].end
		}
		if end > length {
			length = end
		}
	}
	mono := make([]float32, length)
	for _, s := range segments {
		n := len(s.pcm)
		if s.end >= 0 && s.end-s.start < n {
			n = s.end - s.start
		}
		if n <= 0 {
			continue
		}
		vek32.Add_Inplace(mono[s.start:s.start+n], s.pcm[:n])
	}
	stereo := make([]float32, 2*len(mono))
	for i, v := range mono {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		stereo[2*i] = v
		stereo[2*i+1] = v
	}
	return stereo, nil
}

// Wav encodes an interleaved stereo float32 buffer as a .wav file, either as
// 16-bit PCM or as 32-bit IEEE floats.
func Wav(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	wavHeader(len(buffer), pcm16, buf)
	if err := rawToBuffer(buffer, pcm16, buf); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes the buffer without any header.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rawToBuffer(buffer, pcm16, buf); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}

func rawToBuffer(data []float32, pcm16 bool, buf *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data))
		for i, v := range data {
			int16data[i] = int16(clamp(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return nil
}

// wavHeader writes a wave header for either float32 or int16 .wav data into
// the buffer. Assumes stereo sound at SampleRate, so the length in stereo
// samples (L + R) is bufferLength / 2.
func wavHeader(bufferLength int, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	numChannels := 2
	sampleRate := SampleRate
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))            // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength)) // sample length
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
