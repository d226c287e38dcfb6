package models

import (
	"sort"
	"strconv"
)

// Meal is one entry of a diet plan day.
type Meal struct {
	MealName      string  `json:"meal_name"`
	Description   string  `json:"description"`
	Calories      float64 `json:"calories"`
	ProteinG      float64 `json:"protein_g"`
	CarbsG        float64 `json:"carbs_g"`
	FatG          float64 `json:"fat_g"`
	SuggestedTime string  `json:"suggested_time"`
}

// DietPlan is the user's current diet plan. MealsByDay is keyed by day number.
type DietPlan struct {
	ID            uint              `json:"id"`
	StartDate     string            `json:"start_date"`
	EndDate       string            `json:"end_date"`
	DailyCalories float64           `json:"daily_calories"`
	DailyProteinG float64           `json:"daily_protein_g"`
	DailyCarbsG   float64           `json:"daily_carbs_g"`
	DailyFatG     float64           `json:"daily_fat_g"`
	MealsByDay    map[string][]Meal `json:"meals_by_day"`
}

// DietDay is one non-empty day of a diet plan, in day order.
type DietDay struct {
	Day   int
	Meals []Meal
}

// Days returns the non-empty days of the plan ordered by day number.
func (p *DietPlan) Days() []DietDay {
	if p == nil {
		return nil
	}
	days := make([]DietDay, 0, len(p.MealsByDay))
	for key, meals := range p.MealsByDay {
		if len(meals) == 0 {
			continue
		}
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		days = append(days, DietDay{Day: n, Meals: meals})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}

// Exercise is one exercise of a workout day. Sets may be a number or a string upstream.
type Exercise struct {
	ExerciseName string     `json:"exercise_name"`
	Sets         FlexString `json:"sets"`
	Reps         FlexString `json:"reps"`
}

// WorkoutPlanDay groups the exercises of one day.
type WorkoutPlanDay struct {
	DayOfWeek int        `json:"day_of_week"`
	Focus     string     `json:"focus"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPlan is the user's current workout plan.
type WorkoutPlan struct {
	ID          uint             `json:"id"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	DaysPerWeek int              `json:"days_per_week"`
	Description string           `json:"description"`
	PlanDays    []WorkoutPlanDay `json:"plan_days"`
}
