package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mewego",
		Name:      "checkins_total",
		Help:      "Habit check-ins recorded, by status.",
	}, []string{"status"})

	habitsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mewego",
		Name:      "habits_created_total",
		Help:      "Habits created.",
	})

	statsDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mewego",
		Name:      "stats_compute_seconds",
		Help:      "Time to load logs and compute statistics for one habit.",
		Buckets:   prometheus.DefBuckets,
	})

	remindersSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mewego",
		Name:      "reminders_sent_total",
		Help:      "Reminder deliveries, by result.",
	}, []string{"result"})

	broadcastMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mewego",
		Name:      "broadcast_messages_total",
		Help:      "Broadcast deliveries, by result.",
	}, []string{"result"})

	milestonesReachedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mewego",
		Name:      "milestones_reached_total",
		Help:      "Streak milestones reached.",
	})
)
