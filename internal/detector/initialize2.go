// internal/detector/initialize2.go
package detector

import (
	"time"

	bin "github.com/gagliardetto/binary"

	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

const initialize2Tag uint8 = 1

// Initialize2Args is the instruction payload of Raydium AMM v4 initialize2.
type Initialize2Args struct {
	Tag            uint8
	Nonce          uint8
	OpenTime       uint64
	InitPcAmount   uint64
	InitCoinAmount uint64
}

// OpenAt returns the pool open time; zero when the pool opens immediately.
func (a Initialize2Args) OpenAt() time.Time {
	if a.OpenTime == 0 {
		return time.Time{}
	}
	return time.Unix(int64(a.OpenTime), 0).UTC()
}

// DecodeInitialize2 разбирает данные инструкции initialize2 (little-endian, без выравнивания).
func DecodeInitialize2(data []byte) (Initialize2Args, error) {
	const op = "detector.DecodeInitialize2"

	var args Initialize2Args
	if err := bin.NewBorshDecoder(data).Decode(&args); err != nil {
		return Initialize2Args{}, domain.E(domain.KindMalformed, op, err)
	}
	if args.Tag != initialize2Tag {
		return Initialize2Args{}, domain.Errorf(domain.KindMalformed, op, "instruction tag %d, want %d", args.Tag, initialize2Tag)
	}
	return args, nil
}
