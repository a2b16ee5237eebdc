package handlers

const (
	// Pagination limits
	defaultPageSize = 20
	maxPageSize     = 100

	// Request body limits
	maxMelodySteps   = 4096 // 256 bars of sixteenth-note steps
	maxBatchMelodies = 256  // Most melodies accepted by one encode or dataset build

	// Usage log operation names
	operationInput    = "input"
	operationLabel    = "label"
	operationSequence = "sequence"
	operationBatch    = "batch"
	operationDecode   = "decode"
	operationDataset  = "dataset"
)
