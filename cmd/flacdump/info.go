package main

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/coreflac/flac"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info FILE",
	Short: "Print STREAMINFO and seek table summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "emit JSON instead of plain text")
}

type streamInfoSummary struct {
	MinBlockSize  uint16 `json:"min_block_size"`
	MaxBlockSize  uint16 `json:"max_block_size"`
	MinFrameSize  uint32 `json:"min_frame_size"`
	MaxFrameSize  uint32 `json:"max_frame_size"`
	SampleRate    uint32 `json:"sample_rate"`
	ChannelCount  uint8  `json:"channel_count"`
	BitsPerSample uint8  `json:"bits_per_sample"`
	SampleCount   uint64 `json:"sample_count"`
	MD5sum        string `json:"md5sum"`
	SeekPoints    int    `json:"seek_points"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]
	dec, err := flac.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %q", path)
	}
	defer dec.Close()

	si := dec.StreamInfo
	seekPoints := 0
	if dec.SeekTable != nil {
		seekPoints = len(dec.SeekTable.Points)
	}
	summary := streamInfoSummary{
		MinBlockSize:  si.MinBlockSize,
		MaxBlockSize:  si.MaxBlockSize,
		MinFrameSize:  si.MinFrameSize,
		MaxFrameSize:  si.MaxFrameSize,
		SampleRate:    si.SampleRate,
		ChannelCount:  si.ChannelCount,
		BitsPerSample: si.BitsPerSample,
		SampleCount:   si.SampleCount,
		MD5sum:        fmt.Sprintf("%x", si.MD5sum),
		SeekPoints:    seekPoints,
	}

	if infoJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("block size:    %d..%d samples\n", summary.MinBlockSize, summary.MaxBlockSize)
	fmt.Printf("frame size:    %d..%d bytes\n", summary.MinFrameSize, summary.MaxFrameSize)
	fmt.Printf("sample rate:   %d Hz\n", summary.SampleRate)
	fmt.Printf("channels:      %d\n", summary.ChannelCount)
	fmt.Printf("bits/sample:   %d\n", summary.BitsPerSample)
	fmt.Printf("sample count:  %d\n", summary.SampleCount)
	fmt.Printf("md5:           %s\n", summary.MD5sum)
	fmt.Printf("seek points:   %d\n", summary.SeekPoints)
	return nil
}
