package storage

import (
	"fmt"
	"strings"
)

// validStateCondition excludes recorder states that never hold a measurement.
const validStateCondition = "state NOT IN ('unavailable', 'unknown', '') AND state IS NOT NULL"

// likeEscape is the escape character used for prefix patterns. Entity prefixes
// such as "input_number." contain LIKE wildcards.
const likeEscape = "!"

// dialect captures the SQL differences between the supported recorder backends.
type dialect struct {
	name string
	// numeric casts the raw state column to a number.
	numeric string
	// nativeStddev is true when the backend has a population standard deviation aggregate.
	nativeStddev bool
}

var (
	sqliteDialect = dialect{
		name:    "sqlite",
		numeric: "CAST(state AS REAL)",
	}
	mysqlDialect = dialect{
		name:         "mysql",
		numeric:      "CAST(state AS DECIMAL(30,10))",
		nativeStddev: true,
	}
)

func (d dialect) listSourcesQuery(prefixCount int) string {
	conds := make([]string, prefixCount)
	for i := range conds {
		conds[i] = fmt.Sprintf("sm.entity_id LIKE ? ESCAPE '%s'", likeEscape)
	}
	return fmt.Sprintf(`
		SELECT sm.metadata_id, sm.entity_id,
		       (SELECT s.state FROM states s
		         WHERE s.metadata_id = sm.metadata_id AND %s
		         ORDER BY s.last_updated_ts DESC LIMIT 1) AS recent_state
		FROM states_meta sm
		WHERE %s
		ORDER BY sm.entity_id`,
		strings.ReplaceAll(validStateCondition, "state", "s.state"),
		strings.Join(conds, " OR "))
}

// statsQuery returns count, mean and (for native backends) population std dev.
func (d dialect) statsQuery() string {
	if d.nativeStddev {
		return fmt.Sprintf(`
			SELECT COUNT(*), AVG(%[1]s), STDDEV_POP(%[1]s)
			FROM states WHERE metadata_id = ? AND %[2]s`, d.numeric, validStateCondition)
	}
	return fmt.Sprintf(`
		SELECT COUNT(*), AVG(%s), NULL
		FROM states WHERE metadata_id = ? AND %s`, d.numeric, validStateCondition)
}

// varianceQuery is the second pass for backends without a std dev aggregate.
func (d dialect) varianceQuery() string {
	return fmt.Sprintf(`
		SELECT AVG((%[1]s - ?) * (%[1]s - ?))
		FROM states WHERE metadata_id = ? AND %[2]s`, d.numeric, validStateCondition)
}

func (d dialect) outsideQuery() string {
	return fmt.Sprintf(`
		SELECT state_id, %[1]s, last_updated_ts
		FROM states
		WHERE metadata_id = ? AND %[2]s AND (%[1]s < ? OR %[1]s > ?)
		ORDER BY state_id`, d.numeric, validStateCondition)
}

// likePrefix turns an entity prefix into an escaped LIKE pattern.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(prefix) + "%"
}

// placeholders returns "?,?,..." for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
