package curve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/ccrfast/utils"
)

// TenorDate rolls settlement by a tenor string like "1W", "3M", "10Y" or "30D".
func TenorDate(settlement time.Time, tenor string) (time.Time, error) {
	tenor = strings.TrimSpace(strings.ToUpper(tenor))
	if len(tenor) < 2 {
		return time.Time{}, fmt.Errorf("TenorDate: invalid tenor %q", tenor)
	}
	v, err := strconv.Atoi(tenor[:len(tenor)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("TenorDate: invalid tenor %q: %w", tenor, err)
	}
	switch tenor[len(tenor)-1] {
	case 'D':
		return settlement.AddDate(0, 0, v), nil
	case 'W':
		return settlement.AddDate(0, 0, 7*v), nil
	case 'M':
		return utils.AddMonth(settlement, v), nil
	case 'Y':
		return utils.AddMonth(settlement, 12*v), nil
	default:
		return time.Time{}, fmt.Errorf("TenorDate: unknown unit in %q", tenor)
	}
}
