package domain

// UserStats is the cumulative usage record for one user.
type UserStats struct {
	Name       string `json:"name" bson:"name"`
	UsageCount int64  `json:"usage_count" bson:"usage_count"`
	LastUsed   string `json:"last_used" bson:"last_used"`
}

// ChatStats is the cumulative usage record for one chat.
type ChatStats struct {
	Name       string `json:"name" bson:"name"`
	UsageCount int64  `json:"usage_count" bson:"usage_count"`
}

// UsageStats is the process-wide usage snapshot: counters only grow and
// are read back solely for reporting.
type UsageStats struct {
	Users      map[string]UserStats `json:"users"`
	Chats      map[string]ChatStats `json:"chats"`
	DailyUsage map[string]int64     `json:"daily_usage"`
}

// NewUsageStats returns an empty snapshot with all maps allocated.
func NewUsageStats() UsageStats {
	return UsageStats{
		Users:      map[string]UserStats{},
		Chats:      map[string]ChatStats{},
		DailyUsage: map[string]int64{},
	}
}

// TotalUses sums the per-user counters.
func (s UsageStats) TotalUses() int64 {
	var total int64
	for _, user := range s.Users {
		total += user.UsageCount
	}
	return total
}
