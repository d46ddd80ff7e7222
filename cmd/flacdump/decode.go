package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/coreflac/flac"
	"github.com/coreflac/flac/internal/tracelog"
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "Decode a FLAC stream to end, reporting throughput",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	path := args[0]
	dec, err := flac.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %q", path)
	}
	defer dec.Close()

	nch := dec.ChannelCount()
	buf := make([][]int64, nch)
	blockCap := int(dec.StreamInfo.MaxBlockSize)
	if blockCap == 0 {
		blockCap = 65536
	}
	for ch := range buf {
		buf[ch] = make([]int64, blockCap)
	}

	start := time.Now()
	var total uint64
	for {
		n, err := dec.ReadAudioBlock(buf, 0)
		if err != nil {
			return errors.Wrapf(err, "decode %q", path)
		}
		if n == 0 {
			break
		}
		total += uint64(n)
		if tracelog.Enabled() {
			tracelog.Logger.Debug().Uint64("samples_so_far", total).Msg("decoded block")
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("%s: %d samples, %d channels, %d Hz, %d bits/sample\n",
		path, total, nch, dec.StreamInfo.SampleRate, dec.StreamInfo.BitsPerSample)
	fmt.Printf("decoded in %v\n", elapsed.Round(time.Millisecond))
	return nil
}
