package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/coreflac/flac"
)

var seekCmd = &cobra.Command{
	Use:   "seek FILE SAMPLE",
	Short: "Seek to SAMPLE and print the first and last decoded sample of each channel",
	Args:  cobra.ExactArgs(2),
	RunE:  runSeek,
}

func runSeek(cmd *cobra.Command, args []string) error {
	path := args[0]
	target, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return errors.Wrapf(err, "parse sample %q", args[1])
	}

	dec, err := flac.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %q", path)
	}
	defer dec.Close()

	nch := dec.ChannelCount()
	blockCap := int(dec.StreamInfo.MaxBlockSize)
	if blockCap == 0 {
		blockCap = 65536
	}
	buf := make([][]int64, nch)
	for ch := range buf {
		buf[ch] = make([]int64, blockCap)
	}

	n, err := dec.Seek(target, buf, 0)
	if err != nil {
		return errors.Wrapf(err, "seek %q to sample %d", path, target)
	}
	if n == 0 {
		fmt.Printf("seek landed on an empty block at sample %d\n", target)
		return nil
	}

	fmt.Printf("seeked to sample %d, %d samples available in this block\n", target, n)
	for ch := 0; ch < nch; ch++ {
		fmt.Printf("channel %d: first=%d last=%d\n", ch, buf[ch][0], buf[ch][n-1])
	}
	return nil
}
