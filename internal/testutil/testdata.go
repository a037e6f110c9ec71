package testutil

// SampleHistoryCSV is a small provider response: a header row followed by
// daily OHLCV rows, the shape the stream processor consumes.
const SampleHistoryCSV = `Date,Open,High,Low,Close,Volume
2020-01-02,74.06,75.15,73.80,75.09,135480400
2020-01-03,74.29,75.14,74.13,74.36,146322800
2020-01-06,73.45,74.99,73.19,74.95,118387200
2020-01-07,74.96,75.22,74.37,74.60,108872000
`

// SampleHistoryFourRows counts the data rows in SampleHistoryCSV.
const SampleHistoryFourRows = 4
