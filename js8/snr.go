package js8

import "fmt"

// FormatSNR renders an SNR report: +05, +12, -07, -12. Values outside
// [-60, 60] are implausible and give "".
func FormatSNR(snr int) string {
	if snr < -60 || snr > 60 {
		return ""
	}
	if snr >= 0 {
		return fmt.Sprintf("+%02d", snr)
	}
	return fmt.Sprintf("%03d", snr)
}
