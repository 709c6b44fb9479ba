package mission

import (
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/OCAP2/launch-telemetry/pkg/core"
)

// Partition splits the mission's properties into planned trajectories and
// dynamic (interpolated) properties. Both lists are sorted so iteration
// order is deterministic.
func Partition(m *core.Mission) (planned, dynamic []string) {
	if m == nil {
		return nil, nil
	}
	for property := range m.MissionData {
		if core.IsPlanned(property) {
			planned = append(planned, property)
		} else {
			dynamic = append(dynamic, property)
		}
	}
	sort.Strings(planned)
	sort.Strings(dynamic)
	return planned, dynamic
}

// Validate reports every structural problem in a mission record. Equal
// consecutive checkpoint times are allowed (playback steps over them);
// decreasing times and non-finite values are not.
func Validate(m *core.Mission) error {
	if m == nil {
		return fmt.Errorf("mission is nil")
	}

	var result *multierror.Error
	if m.MissionID == "" {
		result = multierror.Append(result, fmt.Errorf("missing missionId"))
	}

	for i := 1; i < len(m.MissionEvents); i++ {
		if m.MissionEvents[i].TimeFromLaunchSec < m.MissionEvents[i-1].TimeFromLaunchSec {
			result = multierror.Append(result, fmt.Errorf("event %d (%s) is earlier than event %d",
				i, m.MissionEvents[i].Title, i-1))
		}
	}

	_, dynamic := Partition(m)
	for _, property := range dynamic {
		checkpoints := m.MissionData[property]
		for i, c := range checkpoints {
			if math.IsNaN(c.TimeSec) || math.IsInf(c.TimeSec, 0) || math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
				result = multierror.Append(result, fmt.Errorf("%s[%d]: non-finite checkpoint", property, i))
				continue
			}
			if i > 0 && c.TimeSec < checkpoints[i-1].TimeSec {
				result = multierror.Append(result, fmt.Errorf("%s[%d]: time %v before previous %v",
					property, i, c.TimeSec, checkpoints[i-1].TimeSec))
			}
		}
	}

	return result.ErrorOrNil()
}

// DuplicateTimes counts consecutive checkpoints sharing a timestamp across
// all dynamic properties.
func DuplicateTimes(m *core.Mission) int {
	_, dynamic := Partition(m)
	n := 0
	for _, property := range dynamic {
		checkpoints := m.MissionData[property]
		for i := 1; i < len(checkpoints); i++ {
			if checkpoints[i].TimeSec == checkpoints[i-1].TimeSec {
				n++
			}
		}
	}
	return n
}
