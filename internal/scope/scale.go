package scope

import "github.com/FilipeMaia/scopeflow/internal/domain"

// ScalePhysical maps raw ADC codes to parallel time/voltage series using the
// preamble. The two dialects apply the code offset differently and are not
// numerically interchangeable: TEK biases the code before scaling, Agilent
// adds the offset in volts after scaling.
func ScalePhysical(p *domain.Preamble, codes []int8) (times, voltages []float64) {
	times = make([]float64, len(codes))
	voltages = make([]float64, len(codes))

	switch p.Dialect {
	case domain.DialectAgilent:
		for i, c := range codes {
			times[i] = float64(i)*p.TimeIncrement + p.TimeOrigin
			voltages[i] = (float64(c)-p.CodeZero)*p.VoltageScale + p.CodeOffset
		}
	default:
		for i, c := range codes {
			times[i] = float64(i)*p.TimeIncrement + p.TimeOrigin
			voltages[i] = (float64(c) - p.CodeZero + p.CodeOffset) * p.VoltageScale
		}
	}
	return times, voltages
}
