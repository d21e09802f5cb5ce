package service

import (
	"math"
	"math/rand"
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DistributionPolicy selects how a subject's required count is spread over weekdays.
type DistributionPolicy string

const (
	// DistributionProportional weights each weekday by how often it occurs in the term.
	DistributionProportional DistributionPolicy = "PROPORTIONAL"
	// DistributionEqualSplit gives every available weekday the same share.
	DistributionEqualSplit DistributionPolicy = "EQUAL_SPLIT"
)

// AssignmentMode selects the candidate order used when filling the slots of a weekday.
type AssignmentMode string

const (
	// AssignStaticPriority orders candidates by total required count, without randomness.
	AssignStaticPriority AssignmentMode = "STATIC_PRIORITY"
	// AssignShuffled shuffles candidates per weekday and avoids repeating the subject
	// placed at the same slot on the previous weekday.
	AssignShuffled AssignmentMode = "SHUFFLED"
)

// --- Weekday occurrences ---

// countWeekdayOccurrences counts instructional days per school weekday. Every weekday
// from Monday to Friday is present in the result, zero when it never occurs.
func countWeekdayOccurrences(days []models.CalendarDay) map[int]int {
	occurrences := make(map[int]int, len(models.SchoolWeekdays))
	for _, weekday := range models.SchoolWeekdays {
		occurrences[weekday] = 0
	}
	for _, day := range days {
		if !day.DayType.IsInstructional() {
			continue
		}
		weekday := day.Weekday()
		if weekday < models.Monday || weekday > models.Friday {
			continue
		}
		occurrences[weekday]++
	}
	return occurrences
}

func weekdayCapacities(rules []models.WeekdayRule) map[int]int {
	capacities := make(map[int]int, len(rules))
	for _, rule := range rules {
		if rule.DefaultSlotCount > 0 {
			capacities[rule.Weekday] = rule.DefaultSlotCount
		}
	}
	return capacities
}

// availableWeekdays returns, in weekday order, the school weekdays that both occur in
// the term and offer at least one slot.
func availableWeekdays(occurrences, capacities map[int]int) []int {
	var result []int
	for _, weekday := range models.SchoolWeekdays {
		if occurrences[weekday] > 0 && capacities[weekday] > 0 {
			result = append(result, weekday)
		}
	}
	return result
}

// --- Requirement distribution ---

// distributeRequirement splits a required lesson count into per-weekday targets.
// The targets sum to required whenever a weekday is available; otherwise the result
// is empty and the subject is left unallocated. Zero targets are omitted.
func distributeRequirement(policy DistributionPolicy, required int, occurrences, capacities map[int]int) map[int]int {
	targets := make(map[int]int)
	available := availableWeekdays(occurrences, capacities)
	if required <= 0 || len(available) == 0 {
		return targets
	}

	switch policy {
	case DistributionEqualSplit:
		splitEqually(targets, required, available)
	default:
		splitProportionally(targets, required, available, occurrences)
	}

	for weekday, count := range targets {
		if count <= 0 {
			delete(targets, weekday)
		}
	}
	return targets
}

func splitEqually(targets map[int]int, required int, available []int) {
	base := required / len(available)
	remainder := required % len(available)
	for i, weekday := range available {
		targets[weekday] = base
		if i < remainder {
			targets[weekday]++
		}
	}
}

func splitProportionally(targets map[int]int, required int, available []int, occurrences map[int]int) {
	total := 0
	for _, weekday := range available {
		total += occurrences[weekday]
	}

	assigned := 0
	for _, weekday := range available {
		share := int(math.Round(float64(required*occurrences[weekday]) / float64(total)))
		targets[weekday] = share
		assigned += share
	}

	diff := required - assigned
	if diff == 0 {
		return
	}

	// Rounding drift is settled one unit per weekday per pass, most frequent weekdays first.
	order := make([]int, len(available))
	copy(order, available)
	sort.SliceStable(order, func(i, j int) bool {
		return occurrences[order[i]] > occurrences[order[j]]
	})

	for diff != 0 {
		progressed := false
		for _, weekday := range order {
			if diff == 0 {
				break
			}
			if diff > 0 {
				targets[weekday]++
				diff--
				progressed = true
				continue
			}
			if targets[weekday] > 0 {
				targets[weekday]--
				diff++
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// --- Slot assignment ---

type subjectDemand struct {
	SubjectID string
	Remaining int
	// Priority is the subject's required count over the whole term.
	Priority int
}

type slotAssignment struct {
	DaySlotIndex int
	SubjectID    *string
}

type dayAssignOptions struct {
	Mode AssignmentMode
	Rand *rand.Rand
	// PreviousDay holds the assignments of the previously processed weekday.
	PreviousDay []slotAssignment
}

// assignDaySlots fills slot positions 1..capacity from left to right. A subject is
// placed at most once per day unless every owed subject is already placed and slots
// remain; slots are left empty once nothing is owed.
func assignDaySlots(capacity int, demands []subjectDemand, opts dayAssignOptions) []slotAssignment {
	pool := make([]*subjectDemand, 0, len(demands))
	for _, demand := range demands {
		if demand.Remaining <= 0 {
			continue
		}
		d := demand
		pool = append(pool, &d)
	}
	orderPool(pool, opts)

	assignedToday := make(map[string]bool, len(pool))
	result := make([]slotAssignment, 0, capacity)
	for index := 1; index <= capacity; index++ {
		previous := subjectAt(opts.PreviousDay, index)
		chosen := pickCandidate(pool, assignedToday, previous, opts.Mode)
		if chosen == nil {
			result = append(result, slotAssignment{DaySlotIndex: index})
			continue
		}
		chosen.Remaining--
		assignedToday[chosen.SubjectID] = true
		subjectID := chosen.SubjectID
		result = append(result, slotAssignment{DaySlotIndex: index, SubjectID: &subjectID})
	}
	return result
}

func orderPool(pool []*subjectDemand, opts dayAssignOptions) {
	if opts.Mode == AssignShuffled {
		if opts.Rand != nil {
			opts.Rand.Shuffle(len(pool), func(i, j int) {
				pool[i], pool[j] = pool[j], pool[i]
			})
		}
		return
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Priority != pool[j].Priority {
			return pool[i].Priority > pool[j].Priority
		}
		if pool[i].Remaining != pool[j].Remaining {
			return pool[i].Remaining > pool[j].Remaining
		}
		return pool[i].SubjectID < pool[j].SubjectID
	})
}

func pickCandidate(pool []*subjectDemand, assignedToday map[string]bool, previous string, mode AssignmentMode) *subjectDemand {
	var fresh, repeats []*subjectDemand
	for _, demand := range pool {
		if demand.Remaining <= 0 {
			continue
		}
		if assignedToday[demand.SubjectID] {
			repeats = append(repeats, demand)
			continue
		}
		fresh = append(fresh, demand)
	}

	candidates := fresh
	if len(candidates) == 0 {
		candidates = repeats
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if ranksBefore(candidate, best, previous, mode) {
			best = candidate
		}
	}
	return best
}

// ranksBefore reports whether a strictly outranks b. Ties keep pool order.
func ranksBefore(a, b *subjectDemand, previous string, mode AssignmentMode) bool {
	if mode == AssignShuffled {
		if previous != "" {
			aRepeats := a.SubjectID == previous
			bRepeats := b.SubjectID == previous
			if aRepeats != bRepeats {
				return bRepeats
			}
		}
		return a.Remaining > b.Remaining
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Remaining > b.Remaining
}

func subjectAt(slots []slotAssignment, index int) string {
	for _, slot := range slots {
		if slot.DaySlotIndex == index && slot.SubjectID != nil {
			return *slot.SubjectID
		}
	}
	return ""
}

// --- Weekly assignment ---

type weeklyInput struct {
	Requirements []models.RequiredLessonCount
	Rules        []models.WeekdayRule
	Occurrences  map[int]int
}

type weeklyAssignment struct {
	// Targets maps subject -> weekday -> planned lessons per week.
	Targets map[string]map[int]int
	// Days maps weekday -> slot assignments, one entry per slot position.
	Days map[int][]slotAssignment
	// Weekdays lists the processed weekdays in order.
	Weekdays   []int
	Capacities map[int]int
}

// buildWeeklyAssignment distributes every requirement and fills each weekday in
// ascending order. The previous weekday's assignments are threaded explicitly so the
// result depends only on the input and rng.
func buildWeeklyAssignment(in weeklyInput, policy DistributionPolicy, mode AssignmentMode, rng *rand.Rand) weeklyAssignment {
	capacities := weekdayCapacities(in.Rules)
	result := weeklyAssignment{
		Targets:    make(map[string]map[int]int, len(in.Requirements)),
		Days:       make(map[int][]slotAssignment),
		Capacities: capacities,
	}

	for _, requirement := range in.Requirements {
		result.Targets[requirement.SubjectID] = distributeRequirement(policy, requirement.RequiredCount, in.Occurrences, capacities)
	}

	weekdays := make([]int, 0, len(capacities))
	for weekday := range capacities {
		weekdays = append(weekdays, weekday)
	}
	sort.Ints(weekdays)

	var previousDay []slotAssignment
	for _, weekday := range weekdays {
		capacity := capacities[weekday]
		if capacity <= 0 || in.Occurrences[weekday] <= 0 {
			continue
		}

		demands := make([]subjectDemand, 0, len(in.Requirements))
		for _, requirement := range in.Requirements {
			owed := result.Targets[requirement.SubjectID][weekday]
			if owed <= 0 {
				continue
			}
			demands = append(demands, subjectDemand{
				SubjectID: requirement.SubjectID,
				Remaining: owed,
				Priority:  requirement.RequiredCount,
			})
		}

		day := assignDaySlots(capacity, demands, dayAssignOptions{
			Mode:        mode,
			Rand:        rng,
			PreviousDay: previousDay,
		})
		result.Days[weekday] = day
		result.Weekdays = append(result.Weekdays, weekday)
		previousDay = day
	}
	return result
}

// --- Conversions ---

func fixedSlotsFromAssignment(termID string, weekly weeklyAssignment) []models.FixedTimetableSlot {
	var slots []models.FixedTimetableSlot
	for _, weekday := range weekly.Weekdays {
		for _, cell := range weekly.Days[weekday] {
			if cell.SubjectID == nil {
				continue
			}
			slots = append(slots, models.FixedTimetableSlot{
				TermID:       termID,
				Weekday:      weekday,
				DaySlotIndex: cell.DaySlotIndex,
				SubjectID:    *cell.SubjectID,
			})
		}
	}
	return slots
}

func planSlotsFromAssignment(planID string, weekly weeklyAssignment) []models.TimetablePlanSlot {
	var slots []models.TimetablePlanSlot
	for _, weekday := range weekly.Weekdays {
		for _, cell := range weekly.Days[weekday] {
			if cell.SubjectID == nil {
				continue
			}
			subjectID := *cell.SubjectID
			slots = append(slots, models.TimetablePlanSlot{
				TimetablePlanID: planID,
				Weekday:         weekday,
				DaySlotIndex:    cell.DaySlotIndex,
				SubjectID:       &subjectID,
			})
		}
	}
	return slots
}

// seedPlanSlots lays out one plan slot per weekday capacity cell, copying the fixed
// timetable subject where one exists.
func seedPlanSlots(planID string, rules []models.WeekdayRule, fixed []models.FixedTimetableSlot) []models.TimetablePlanSlot {
	type cellKey struct{ weekday, index int }
	fixedByCell := make(map[cellKey]string, len(fixed))
	for _, slot := range fixed {
		fixedByCell[cellKey{slot.Weekday, slot.DaySlotIndex}] = slot.SubjectID
	}

	ordered := make([]models.WeekdayRule, len(rules))
	copy(ordered, rules)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Weekday < ordered[j].Weekday })

	var slots []models.TimetablePlanSlot
	for _, rule := range ordered {
		for index := 1; index <= rule.DefaultSlotCount; index++ {
			slot := models.TimetablePlanSlot{
				TimetablePlanID: planID,
				Weekday:         rule.Weekday,
				DaySlotIndex:    index,
			}
			if subjectID, ok := fixedByCell[cellKey{rule.Weekday, index}]; ok {
				id := subjectID
				slot.SubjectID = &id
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

// deliveredCounts returns, per subject, the number of lessons a weekly grid yields over
// the term: each placed slot counts once per occurrence of its weekday.
func deliveredCounts(cells []gridCell, occurrences map[int]int) map[string]int {
	counts := make(map[string]int)
	for _, cell := range cells {
		if cell.SubjectID == "" {
			continue
		}
		counts[cell.SubjectID] += occurrences[cell.Weekday]
	}
	return counts
}

type gridCell struct {
	Weekday      int
	DaySlotIndex int
	SubjectID    string
}

func gridFromFixed(slots []models.FixedTimetableSlot) []gridCell {
	cells := make([]gridCell, 0, len(slots))
	for _, slot := range slots {
		cells = append(cells, gridCell{Weekday: slot.Weekday, DaySlotIndex: slot.DaySlotIndex, SubjectID: slot.SubjectID})
	}
	return cells
}

func gridFromPlan(slots []models.TimetablePlanSlot) []gridCell {
	cells := make([]gridCell, 0, len(slots))
	for _, slot := range slots {
		cell := gridCell{Weekday: slot.Weekday, DaySlotIndex: slot.DaySlotIndex}
		if slot.SubjectID != nil {
			cell.SubjectID = *slot.SubjectID
		}
		cells = append(cells, cell)
	}
	return cells
}
