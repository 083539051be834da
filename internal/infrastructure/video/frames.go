package video

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Info describes an uploaded video file.
type Info struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             float64 `json:"fps"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type probeData struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads video dimensions, frame rate and duration via ffprobe.
func Probe(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var data probeData
	if err := json.Unmarshal(output, &data); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(data.Streams) == 0 {
		return Info{}, fmt.Errorf("no video streams found in %s", path)
	}

	stream := data.Streams[0]
	info := Info{
		Width:  stream.Width,
		Height: stream.Height,
		FPS:    parseFrameRate(stream.AvgFrameRate),
	}
	if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil {
		info.DurationSeconds = d
	}
	return info, nil
}

// parseFrameRate parses ffprobe's rational frame rate, e.g. "30000/1001".
func parseFrameRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// ExtractFrames decodes the video through an ffmpeg rawvideo pipe and calls
// fn for every everyN-th frame. fn returning an error stops extraction.
func ExtractFrames(ctx context.Context, path string, everyN int, fn func(frameIndex int, frame image.Image) error) error {
	if everyN < 1 {
		everyN = 1
	}

	info, err := Probe(ctx, path)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "image2pipe",
		"-pix_fmt", "rgba",
		"-vcodec", "rawvideo",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}
	defer func() {
		stdout.Close()
		cmd.Wait()
	}()

	frameSize := info.Width * info.Height * 4
	buffer := make([]byte, frameSize)

	for frameIndex := 0; ; frameIndex++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := io.ReadFull(stdout, buffer); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if frameIndex%everyN != 0 {
			continue
		}

		pixelData := make([]byte, len(buffer))
		copy(pixelData, buffer)

		frame := &image.RGBA{
			Pix:    pixelData,
			Stride: info.Width * 4,
			Rect:   image.Rect(0, 0, info.Width, info.Height),
		}

		if err := fn(frameIndex, frame); err != nil {
			return err
		}
	}
}
