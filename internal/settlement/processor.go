package settlement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Processor struct {
	db           *Database
	processDelay time.Duration // Time between settlement processing attempts
}

func NewProcessor(db *Database) *Processor {
	return &Processor{
		db:           db,
		processDelay: 5 * time.Minute, // Configurable processing interval
	}
}

// Start begins the settlement processing loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "settlement_processor").Logger()
	logger.Info().Msg("starting settlement processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down settlement processor")
			return
		case <-ticker.C:
			if err := p.processPendingSettlements(); err != nil {
				logger.Error().Err(err).Msg("failed to process pending settlements")
			}
		}
	}
}

func (p *Processor) processPendingSettlements() error {
	logger := log.With().Str("component", "settlement_processor").Logger()
	
	// Get all pending settlements
	settlements, err := p.db.GetPendingSettlements()
	if err != nil {
		return err
	}

	logger.Info().Int("pending_count", len(settlements)).Msg("processing pending settlements")

	for _, settlement := range settlements {
		// Skip if settlement date hasn't been reached
		if time.Now().Before(settlement.SettlementDate) {
			continue
		}

		// Simulate CSD processing steps
		switch settlement.SettlementStatus {
		case "PENDING":
			settlement.SettlementStatus = "SETTLING"
			logger.Info().
				Str("settlement_id", settlement.SettlementID).
				Msg("initiating settlement process")

		case "SETTLING":
			// Simulate settlement verification
			if p.verifySettlement(&settlement) {
				settlement.SettlementStatus = "SETTLED"
				logger.Info().
					Str("settlement_id", settlement.SettlementID).
					Msg("settlement completed successfully")
			}

		case "FAILED":
			// Handle failed settlements (could implement retry logic here)
			logger.Warn().
				Str("settlement_id", settlement.SettlementID).
				Msg("settlement failed, no further processing")
			continue
		}

		settlement.UpdatedAt = time.Now()
		if err := p.db.UpdateSettlement(&settlement); err != nil {
			logger.Error().
				Err(err).
				Str("settlement_id", settlement.SettlementID).
				Msg("failed to update settlement status")
			continue
		}
	}

	return nil
}

// verifySettlement simulates CSD verification process
func (p *Processor) verifySettlement(settlement *Settlement) bool {
	// Simulate various settlement checks:
	// 1. Verify sufficient funds in settlement account
	// 2. Verify security positions
	// 3. Check for any holds or restrictions
	// 4. Validate settlement instructions
	
	// For simulation, succeed 95% of the time
	return time.Now().UnixNano()%100 < 95
} 