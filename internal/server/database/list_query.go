package database

import (
	"strconv"
	"strings"

	"github.com/4Noyis/device-fleet-monitoring/internal/server/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListQuery renders the device list query for filter. Values are always
// bound as parameters.
func buildListQuery(filter models.DeviceFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	next := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	switch filter.Status {
	case models.StatusActive:
		conds = append(conds, "is_active = "+next(true))
	case models.StatusInactive:
		conds = append(conds, "is_active = "+next(false))
	}

	if filter.OS != "" {
		conds = append(conds, "os = "+next(filter.OS))
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		p := next("%" + likeEscaper.Replace(search) + "%")
		conds = append(conds, "(custom_name ILIKE "+p+" OR hostname ILIKE "+p+")")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(deviceColumns)
	b.WriteString(" FROM clients")
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY last_seen DESC")

	return b.String(), args
}
