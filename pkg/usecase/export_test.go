package usecase

// Summarize is exported for testing
var Summarize = summarize
