package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// termDays builds a calendar starting on Monday 2024-07-15 covering the given number of
// weeks, every day tagged NORMAL, weekends included.
func termDays(weeks int) []models.CalendarDay {
	start := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	days := make([]models.CalendarDay, 0, weeks*7)
	for i := 0; i < weeks*7; i++ {
		days = append(days, models.CalendarDay{Date: start.AddDate(0, 0, i), DayType: models.DayTypeNormal})
	}
	return days
}

func uniformRules(slots int) []models.WeekdayRule {
	rules := make([]models.WeekdayRule, 0, len(models.SchoolWeekdays))
	for _, weekday := range models.SchoolWeekdays {
		rules = append(rules, models.WeekdayRule{Weekday: weekday, DefaultSlotCount: slots})
	}
	return rules
}

func uniformOccurrences(n int) map[int]int {
	return map[int]int{1: n, 2: n, 3: n, 4: n, 5: n}
}

func sumTargets(targets map[int]int) int {
	total := 0
	for _, v := range targets {
		total += v
	}
	return total
}

func subjectsOf(slots []slotAssignment) []string {
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot.SubjectID == nil {
			out = append(out, "")
			continue
		}
		out = append(out, *slot.SubjectID)
	}
	return out
}

func TestCountWeekdayOccurrences(t *testing.T) {
	days := termDays(2)
	// School events still count; holidays and weekly-off days do not.
	days[2].DayType = models.DayTypeHoliday
	days[10].DayType = models.DayTypeSchoolEvent
	days[4].DayType = models.DayTypeWeeklyOff

	occurrences := countWeekdayOccurrences(days)

	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 1, 4: 2, 5: 1}, occurrences)
}

func TestCountWeekdayOccurrencesAlwaysHasSchoolWeekdays(t *testing.T) {
	occurrences := countWeekdayOccurrences(nil)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, occurrences)
}

func TestCountWeekdayOccurrencesDropsWeekends(t *testing.T) {
	saturday := time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC)
	occurrences := countWeekdayOccurrences([]models.CalendarDay{
		{Date: saturday, DayType: models.DayTypeNormal},
		{Date: saturday.AddDate(0, 0, 1), DayType: models.DayTypeSchoolEvent},
	})
	assert.Equal(t, 0, sumTargets(occurrences))
	_, hasSaturday := occurrences[models.Saturday]
	assert.False(t, hasSaturday)
}

func TestDistributeRequirementProportionalEven(t *testing.T) {
	caps := weekdayCapacities(uniformRules(6))

	targets := distributeRequirement(DistributionProportional, 10, uniformOccurrences(4), caps)

	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 2, 4: 2, 5: 2}, targets)
}

func TestDistributeRequirementRemainderGoesToEarlyWeekdays(t *testing.T) {
	caps := weekdayCapacities(uniformRules(6))
	want := map[int]int{1: 2, 2: 2, 3: 1, 4: 1, 5: 1}

	assert.Equal(t, want, distributeRequirement(DistributionProportional, 7, uniformOccurrences(4), caps))
	assert.Equal(t, want, distributeRequirement(DistributionEqualSplit, 7, uniformOccurrences(4), caps))
}

func TestDistributeRequirementProportionalReconcilesOvershoot(t *testing.T) {
	caps := weekdayCapacities(uniformRules(6))
	occurrences := map[int]int{1: 5, 2: 4, 3: 4, 4: 4, 5: 3}

	targets := distributeRequirement(DistributionProportional, 3, occurrences, caps)

	assert.Equal(t, 3, sumTargets(targets))
	assert.Equal(t, map[int]int{2: 1, 3: 1, 4: 1}, targets)
}

func TestDistributeRequirementEqualSplitSumsToRequired(t *testing.T) {
	capacitySets := []map[int]int{
		weekdayCapacities(uniformRules(6)),
		{1: 4, 3: 2, 5: 8},
		{2: 1},
	}
	occurrenceSets := []map[int]int{
		{1: 5, 2: 4, 3: 4, 4: 4, 5: 3},
		{1: 1, 2: 7, 3: 0, 4: 2, 5: 9},
		{1: 0, 2: 3, 3: 1, 4: 0, 5: 6},
	}
	for _, caps := range capacitySets {
		for _, occurrences := range occurrenceSets {
			available := availableWeekdays(occurrences, caps)
			if len(available) == 0 {
				continue
			}
			for required := 1; required <= 40; required++ {
				targets := distributeRequirement(DistributionEqualSplit, required, occurrences, caps)
				require.Equal(t, required, sumTargets(targets), "required=%d occurrences=%v caps=%v", required, occurrences, caps)

				low, high := required, 0
				for _, weekday := range available {
					low = min(low, targets[weekday])
					high = max(high, targets[weekday])
				}
				assert.LessOrEqual(t, high-low, 1)
				for weekday, count := range targets {
					assert.Positive(t, count)
					assert.Positive(t, occurrences[weekday])
					assert.Positive(t, caps[weekday])
				}
			}
		}
	}
}

func TestDistributeRequirementProportionalSumsToRequired(t *testing.T) {
	caps := weekdayCapacities(uniformRules(6))
	occurrenceSets := []map[int]int{
		{1: 5, 2: 4, 3: 4, 4: 4, 5: 3},
		{1: 1, 2: 7, 3: 0, 4: 2, 5: 9},
		{1: 13, 2: 13, 3: 12, 4: 12, 5: 11},
		{1: 0, 2: 0, 3: 1, 4: 0, 5: 0},
	}
	for _, occurrences := range occurrenceSets {
		for required := 1; required <= 40; required++ {
			targets := distributeRequirement(DistributionProportional, required, occurrences, caps)
			require.Equal(t, required, sumTargets(targets), "required=%d occurrences=%v", required, occurrences)
			for weekday, count := range targets {
				assert.Positive(t, count)
				assert.Positive(t, occurrences[weekday])
			}
		}
	}
}

func TestDistributeRequirementSkipsUnavailableWeekdays(t *testing.T) {
	rules := uniformRules(6)
	rules[2].DefaultSlotCount = 0
	occurrences := map[int]int{1: 4, 2: 0, 3: 4, 4: 4, 5: 4}

	targets := distributeRequirement(DistributionEqualSplit, 6, occurrences, weekdayCapacities(rules))

	assert.Equal(t, map[int]int{1: 2, 4: 2, 5: 2}, targets)
}

func TestDistributeRequirementEmptyWhenNothingAvailable(t *testing.T) {
	caps := weekdayCapacities(uniformRules(6))

	assert.Empty(t, distributeRequirement(DistributionProportional, 5, uniformOccurrences(0), caps))
	assert.Empty(t, distributeRequirement(DistributionEqualSplit, 5, uniformOccurrences(4), map[int]int{}))
	assert.Empty(t, distributeRequirement(DistributionEqualSplit, 0, uniformOccurrences(4), caps))
}

func TestAssignDaySlotsForcedRepeat(t *testing.T) {
	demands := []subjectDemand{
		{SubjectID: "math", Remaining: 2, Priority: 10},
		{SubjectID: "art", Remaining: 1, Priority: 7},
		{SubjectID: "pe", Remaining: 1, Priority: 5},
		{SubjectID: "music", Remaining: 1, Priority: 4},
		{SubjectID: "health", Remaining: 1, Priority: 3},
	}

	day := assignDaySlots(6, demands, dayAssignOptions{Mode: AssignStaticPriority})

	assert.Equal(t, []string{"math", "art", "pe", "music", "health", "math"}, subjectsOf(day))
	for i, slot := range day {
		assert.Equal(t, i+1, slot.DaySlotIndex)
	}
}

func TestAssignDaySlotsLeavesNullWhenNothingOwed(t *testing.T) {
	demands := []subjectDemand{
		{SubjectID: "math", Remaining: 1, Priority: 10},
		{SubjectID: "art", Remaining: 1, Priority: 7},
		{SubjectID: "idle", Remaining: 0, Priority: 20},
	}

	day := assignDaySlots(4, demands, dayAssignOptions{Mode: AssignStaticPriority})

	assert.Equal(t, []string{"math", "art", "", ""}, subjectsOf(day))
}

func TestAssignDaySlotsStaticTieBreaks(t *testing.T) {
	demands := []subjectDemand{
		{SubjectID: "b", Remaining: 1, Priority: 5},
		{SubjectID: "a", Remaining: 1, Priority: 5},
		{SubjectID: "c", Remaining: 2, Priority: 5},
	}

	day := assignDaySlots(3, demands, dayAssignOptions{Mode: AssignStaticPriority})

	assert.Equal(t, []string{"c", "a", "b"}, subjectsOf(day))
}

func TestAssignDaySlotsShuffledAvoidsPreviousDay(t *testing.T) {
	math, art := "math", "art"
	previous := []slotAssignment{{DaySlotIndex: 1, SubjectID: &math}, {DaySlotIndex: 2, SubjectID: &art}}
	demands := []subjectDemand{
		{SubjectID: "math", Remaining: 1},
		{SubjectID: "art", Remaining: 1},
	}

	for seed := int64(1); seed <= 20; seed++ {
		day := assignDaySlots(2, demands, dayAssignOptions{
			Mode:        AssignShuffled,
			Rand:        rand.New(rand.NewSource(seed)),
			PreviousDay: previous,
		})
		require.Equal(t, []string{"art", "math"}, subjectsOf(day), "seed %d", seed)
	}
}

func TestAssignDaySlotsShuffledPrefersHigherRemaining(t *testing.T) {
	demands := []subjectDemand{
		{SubjectID: "art", Remaining: 1},
		{SubjectID: "math", Remaining: 2},
	}

	day := assignDaySlots(3, demands, dayAssignOptions{Mode: AssignShuffled, Rand: rand.New(rand.NewSource(7))})

	assert.Equal(t, []string{"math", "art", "math"}, subjectsOf(day))
}

func TestAssignDaySlotsShuffledFallsBackToPreviousSubject(t *testing.T) {
	math := "math"
	previous := []slotAssignment{{DaySlotIndex: 1, SubjectID: &math}}
	demands := []subjectDemand{{SubjectID: "math", Remaining: 1}}

	day := assignDaySlots(2, demands, dayAssignOptions{Mode: AssignShuffled, Rand: rand.New(rand.NewSource(1)), PreviousDay: previous})

	assert.Equal(t, []string{"math", ""}, subjectsOf(day))
}

func weeklyFixture() weeklyInput {
	return weeklyInput{
		Requirements: []models.RequiredLessonCount{
			{SubjectID: "math", RequiredCount: 40},
			{SubjectID: "art", RequiredCount: 28},
			{SubjectID: "pe", RequiredCount: 20},
			{SubjectID: "music", RequiredCount: 16},
			{SubjectID: "health", RequiredCount: 12},
		},
		Rules:       uniformRules(6),
		Occurrences: countWeekdayOccurrences(termDays(4)),
	}
}

func TestBuildWeeklyAssignmentStaticIsIdempotent(t *testing.T) {
	first := buildWeeklyAssignment(weeklyFixture(), DistributionProportional, AssignStaticPriority, nil)
	second := buildWeeklyAssignment(weeklyFixture(), DistributionProportional, AssignStaticPriority, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, first.Weekdays)
}

func TestBuildWeeklyAssignmentShuffledIsDeterministicPerSeed(t *testing.T) {
	first := buildWeeklyAssignment(weeklyFixture(), DistributionEqualSplit, AssignShuffled, rand.New(rand.NewSource(99)))
	second := buildWeeklyAssignment(weeklyFixture(), DistributionEqualSplit, AssignShuffled, rand.New(rand.NewSource(99)))

	assert.Equal(t, first, second)
}

func TestBuildWeeklyAssignmentMeetsWeeklyTargets(t *testing.T) {
	input := weeklyFixture()
	for _, mode := range []AssignmentMode{AssignStaticPriority, AssignShuffled} {
		weekly := buildWeeklyAssignment(input, DistributionEqualSplit, mode, rand.New(rand.NewSource(3)))
		for weekday, day := range weekly.Days {
			require.Len(t, day, 6)
			placed := map[string]int{}
			for _, slot := range day {
				if slot.SubjectID != nil {
					placed[*slot.SubjectID]++
				}
			}
			for subjectID, targets := range weekly.Targets {
				assert.LessOrEqual(t, placed[subjectID], targets[weekday], "subject %s weekday %d", subjectID, weekday)
			}
		}
	}
}

func TestBuildWeeklyAssignmentSkipsWeekdaysWithoutOccurrences(t *testing.T) {
	input := weeklyFixture()
	input.Occurrences[models.Wednesday] = 0

	weekly := buildWeeklyAssignment(input, DistributionEqualSplit, AssignStaticPriority, nil)

	assert.Equal(t, []int{1, 2, 4, 5}, weekly.Weekdays)
	_, hasWednesday := weekly.Days[models.Wednesday]
	assert.False(t, hasWednesday)
}

func TestBuildWeeklyAssignmentThreadsPreviousDay(t *testing.T) {
	input := weeklyInput{
		Requirements: []models.RequiredLessonCount{
			{SubjectID: "math", RequiredCount: 2},
			{SubjectID: "art", RequiredCount: 2},
		},
		Rules: []models.WeekdayRule{
			{Weekday: models.Monday, DefaultSlotCount: 2},
			{Weekday: models.Tuesday, DefaultSlotCount: 2},
		},
		Occurrences: map[int]int{1: 1, 2: 1, 3: 0, 4: 0, 5: 0},
	}

	for seed := int64(1); seed <= 10; seed++ {
		weekly := buildWeeklyAssignment(input, DistributionEqualSplit, AssignShuffled, rand.New(rand.NewSource(seed)))
		monday := subjectsOf(weekly.Days[models.Monday])
		tuesday := subjectsOf(weekly.Days[models.Tuesday])
		require.ElementsMatch(t, []string{"math", "art"}, monday)
		assert.NotEqual(t, monday[0], tuesday[0], "seed %d", seed)
		assert.NotEqual(t, monday[1], tuesday[1], "seed %d", seed)
	}
}

func TestSeedPlanSlots(t *testing.T) {
	rules := []models.WeekdayRule{
		{Weekday: models.Tuesday, DefaultSlotCount: 1},
		{Weekday: models.Monday, DefaultSlotCount: 2},
		{Weekday: models.Wednesday, DefaultSlotCount: 0},
	}
	fixed := []models.FixedTimetableSlot{
		{Weekday: models.Monday, DaySlotIndex: 2, SubjectID: "math"},
		{Weekday: models.Wednesday, DaySlotIndex: 1, SubjectID: "art"},
	}

	slots := seedPlanSlots("plan-1", rules, fixed)

	require.Len(t, slots, 3)
	assert.Equal(t, models.Monday, slots[0].Weekday)
	assert.Nil(t, slots[0].SubjectID)
	require.NotNil(t, slots[1].SubjectID)
	assert.Equal(t, "math", *slots[1].SubjectID)
	assert.Equal(t, models.Tuesday, slots[2].Weekday)
	assert.Nil(t, slots[2].SubjectID)
	for _, slot := range slots {
		assert.Equal(t, "plan-1", slot.TimetablePlanID)
	}
}

func TestDeliveredCounts(t *testing.T) {
	cells := []gridCell{
		{Weekday: 1, DaySlotIndex: 1, SubjectID: "math"},
		{Weekday: 2, DaySlotIndex: 1, SubjectID: "math"},
		{Weekday: 2, DaySlotIndex: 2, SubjectID: ""},
		{Weekday: 3, DaySlotIndex: 1, SubjectID: "art"},
	}

	counts := deliveredCounts(cells, map[int]int{1: 4, 2: 3, 3: 0})

	assert.Equal(t, map[string]int{"math": 7, "art": 0}, counts)
}
