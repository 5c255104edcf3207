package sensors

// Level is the colour class of a status cell.
type Level string

const (
	LevelOK  Level = "ok"
	LevelMid Level = "mid"
	LevelBad Level = "bad"
)

type Status struct {
	Label string `json:"label"`
	Level Level  `json:"level"`
}

// Thresholds are the limits used to classify readings and raise alerts.
type Thresholds struct {
	TemperatureHigh float64
	TemperatureWarm float64
	HumidityHigh    float64
	PressureLow     float64
	CO2High         float64
	CO2Moderate     float64
	PM25Moderate    float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureHigh: 34,
		TemperatureWarm: 26,
		HumidityHigh:    60,
		PressureLow:     990,
		CO2High:         1200,
		CO2Moderate:     800,
		PM25Moderate:    35,
	}
}

// Classify returns the status label and level for value v of p.
// Pressure and noise are always reported as safe; low pressure is an alert, not a status.
func (t Thresholds) Classify(p Parameter, v float64) Status {
	switch p {
	case Temperature:
		if v > t.TemperatureHigh {
			return Status{"High", LevelBad}
		}
		if v > t.TemperatureWarm {
			return Status{"Warm", LevelMid}
		}
		return Status{"Normal", LevelOK}
	case Humidity:
		if v > t.HumidityHigh {
			return Status{"High", LevelMid}
		}
		return Status{"Normal", LevelOK}
	case CO2:
		if v > t.CO2High {
			return Status{"High", LevelBad}
		}
		if v > t.CO2Moderate {
			return Status{"Moderate", LevelMid}
		}
		return Status{"Normal", LevelOK}
	case PM25:
		if v > t.PM25Moderate {
			return Status{"Moderate", LevelMid}
		}
		return Status{"Clean", LevelOK}
	}
	return Status{"Safe", LevelOK}
}

// Classify uses the default thresholds.
func Classify(p Parameter, v float64) Status {
	return DefaultThresholds().Classify(p, v)
}
