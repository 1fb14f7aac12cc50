package ppe

import "PPEGuard/internal/entity"

func Summarize(records []entity.ComplianceRecord) entity.AlarmSummary {
	summary := entity.AlarmSummary{PersonsEvaluated: len(records)}
	for _, record := range records {
		if !record.HasAlarm {
			continue
		}
		summary.PersonsWithAlarm++
		summary.TotalMissingItems += len(record.Missing)
	}
	return summary
}
