// internal/detector/extractor.go
package detector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-sniper/internal/blockchain"
	"github.com/rovshanmuradov/lp-sniper/internal/domain"
)

// Extractor resolves a matched signature to the token pair of the created pool.
type Extractor struct {
	fetcher blockchain.TransactionFetcher
	decoder Decoder
	logger  *zap.Logger
	now     func() time.Time
}

func NewExtractor(fetcher blockchain.TransactionFetcher, decoder Decoder, logger *zap.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		decoder: decoder,
		logger:  logger.Named("extractor"),
		now:     time.Now,
	}
}

// Extract fetches the transaction and decodes the first top-level instruction
// addressed to the decoder's program.
func (e *Extractor) Extract(ctx context.Context, signature string) (domain.PoolDetection, error) {
	const op = "detector.Extract"

	tx, err := e.fetcher.GetTransaction(ctx, signature)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.E(domain.KindTransport, op, err)
		}
		return domain.PoolDetection{}, err
	}
	if tx == nil {
		return domain.PoolDetection{}, domain.Errorf(domain.KindNotFound, op, "transaction %s not found", signature)
	}

	ix, ok := tx.FindByProgram(e.decoder.ProgramID())
	if !ok {
		return domain.PoolDetection{}, domain.Errorf(domain.KindMalformed, op,
			"transaction %s has no %s instruction", signature, e.decoder.ProgramID())
	}

	tokenA, tokenB, err := e.decoder.Decode(ix)
	if err != nil {
		return domain.PoolDetection{}, err
	}

	det := domain.PoolDetection{
		Signature:  signature,
		Slot:       tx.Slot,
		TokenA:     tokenA,
		TokenB:     tokenB,
		DetectedAt: e.now(),
	}
	if len(ix.Data) > 0 {
		args, err := DecodeInitialize2(ix.Data)
		if err != nil {
			e.logger.Debug("initialize2 payload not decoded", zap.String("signature", signature), zap.Error(err))
		} else {
			det.OpenTime = args.OpenAt()
			det.InitCoinAmount = args.InitCoinAmount
			det.InitPcAmount = args.InitPcAmount
		}
	}
	e.logger.Debug("Pool accounts extracted",
		zap.String("signature", signature),
		zap.String("token_a", tokenA),
		zap.String("token_b", tokenB))
	return det, nil
}
