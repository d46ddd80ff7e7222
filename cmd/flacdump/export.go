package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/pkg/osutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/coreflac/flac"
)

var exportForce bool

var exportCmd = &cobra.Command{
	Use:   "export FILE OUT.wav",
	Short: "Decode a FLAC stream fully and mux it to a WAV file",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().BoolVarP(&exportForce, "force", "f", false, "force overwrite of an existing output file")
}

func runExport(cmd *cobra.Command, args []string) error {
	inPath, outPath := args[0], args[1]

	if !exportForce && osutil.Exists(outPath) {
		return errors.Errorf("output file %q already exists; pass -f to overwrite", outPath)
	}

	dec, err := flac.Open(inPath)
	if err != nil {
		return errors.Wrapf(err, "open %q", inPath)
	}
	defer dec.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrapf(err, "create %q", outPath)
	}
	defer out.Close()

	si := dec.StreamInfo
	nch := int(si.ChannelCount)
	enc := wav.NewEncoder(out, int(si.SampleRate), int(si.BitsPerSample), nch, 1)
	defer enc.Close()

	blockCap := int(si.MaxBlockSize)
	if blockCap == 0 {
		blockCap = 65536
	}
	buf := make([][]int64, nch)
	for ch := range buf {
		buf[ch] = make([]int64, blockCap)
	}

	ibuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: nch,
			SampleRate:  int(si.SampleRate),
		},
		Data:           make([]int, blockCap*nch),
		SourceBitDepth: int(si.BitsPerSample),
	}

	var total uint64
	for {
		n, err := dec.ReadAudioBlock(buf, 0)
		if err != nil {
			return errors.Wrapf(err, "decode %q", inPath)
		}
		if n == 0 {
			break
		}
		ibuf.Data = ibuf.Data[:n*nch]
		for i := 0; i < n; i++ {
			for ch := 0; ch < nch; ch++ {
				ibuf.Data[i*nch+ch] = int(buf[ch][i])
			}
		}
		if err := enc.Write(ibuf); err != nil {
			return errors.Wrapf(err, "write WAV samples to %q", outPath)
		}
		total += uint64(n)
	}

	fmt.Printf("exported %d samples from %q to %q\n", total, inPath, outPath)
	return nil
}
