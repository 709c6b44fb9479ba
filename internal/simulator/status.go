package simulator

// Status is a point-in-time view of the simulator.
type Status struct {
	MissionID      string             `json:"missionId"`
	MissionTimeSec float64            `json:"missionTimeSec"`
	PlaybackSpeed  float64            `json:"playbackSpeed"`
	TimeStep       float64            `json:"timeStep"`
	Loading        bool               `json:"loading"`
	LoadError      string             `json:"loadError,omitempty"`
	Running        bool               `json:"running"`
	Complete       bool               `json:"complete"`
	Subscribers    []SubscriberStatus `json:"subscribers"`
	Pending        int                `json:"pending"`
	LakeSizes      map[string]int     `json:"lakeSizes"`
}

// SubscriberStatus describes one active subscriber. Buffered counts the
// samples waiting for its next flush.
type SubscriberStatus struct {
	ID         string   `json:"id"`
	Hz         float64  `json:"hz"`
	Properties []string `json:"properties"`
	Buffered   int      `json:"buffered"`
}

func (s *Simulator) status() Status {
	st := Status{
		MissionID:      s.missionID(),
		MissionTimeSec: s.missionTimeSec,
		PlaybackSpeed:  s.speed,
		TimeStep:       s.timeStep,
		Running:        s.running,
		Complete:       s.complete,
		Subscribers:    make([]SubscriberStatus, 0, len(s.subs)),
		Pending:        s.pending.Len(),
		LakeSizes:      make(map[string]int, len(s.lake)),
	}

	if h := s.load; h != nil {
		select {
		case <-h.done:
			if h.err != nil {
				st.LoadError = h.err.Error()
			}
		default:
			st.Loading = true
		}
	}

	for _, id := range s.subscriberIDs() {
		sub := s.subs[id]
		buffered := 0
		for _, samples := range s.buffers[id] {
			buffered += len(samples)
		}
		st.Subscribers = append(st.Subscribers, SubscriberStatus{
			ID:         id,
			Hz:         sub.hz,
			Properties: sub.properties,
			Buffered:   buffered,
		})
	}
	for p, samples := range s.lake {
		st.LakeSizes[p] = len(samples)
	}
	return st
}
