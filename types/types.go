package types

// Config holds the options shared by the reading commands.
type Config struct {
	Variable       string
	Step           int
	Time           float64
	UseTime        bool
	ElementAverage bool
	Concurrency    int
	Output         string
	Encoding       string
}
