// ABOUTME: CLI commands for adding records to the six collections.
// ABOUTME: Each record kind is its own subcommand; every write triggers a sync.
package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/harperreed/healthlink/internal/repository"
	"github.com/spf13/cobra"
)

var (
	addAt string

	addGoal bool

	medDosage    string
	medFrequency string
	medType      string

	foodMeal string
	foodQty  float64
	foodMacros models.Nutrients
)

var addCmd = &cobra.Command{
	Use:     "add",
	Aliases: []string{"a"},
	Short:   "Add a health record",
	Long: `Add a health record. Use --at to backdate any record.

Examples:
  health add weight 82.5
  health add weight 75 --goal
  health add medication Prednisone --dosage 10mg --type exacerbation
  health add oxygen 96 --at "2024-12-14 07:00"
  health add exercise walk 30
  health add water 500
  health add food "Oatmeal" --meal breakfast --calories 300 --protein 10`,
}

// recordTime resolves --at against the current time.
func recordTime() (int64, error) {
	t, err := repository.ParseTime(addAt, time.Now())
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %s", addAt)
	}
	return models.Millis(t), nil
}

func parseNumber(s, what string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", what, s)
	}
	return v, nil
}

var addWeightCmd = &cobra.Command{
	Use:   "weight <kg>",
	Short: "Add a weight (or goal weight with --goal)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseNumber(args[0], "weight")
		if err != nil {
			return err
		}
		date, err := recordTime()
		if err != nil {
			return err
		}
		w := &models.WeightEntry{Date: date, Weight: v, IsGoal: addGoal}
		if err := repo.SaveWeight(cmd.Context(), w); err != nil {
			return fmt.Errorf("failed to add weight: %w", err)
		}
		what := "weight"
		if addGoal {
			what = "goal weight"
		}
		success(cmd, "Added %s", what)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %.1f kg\n", faint.Sprintf("#%d", w.ID), w.Weight)
		return afterWrite(cmd)
	},
}

var addMedicationCmd = &cobra.Command{
	Use:     "medication <name>",
	Aliases: []string{"med"},
	Short:   "Add a medication dose",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.IsValidMedicationType(medType) {
			return fmt.Errorf("invalid medication type: %s (use daily or exacerbation)", medType)
		}
		date, err := recordTime()
		if err != nil {
			return err
		}
		m := &models.Medication{
			Date:      date,
			Name:      args[0],
			Dosage:    medDosage,
			Frequency: medFrequency,
			Type:      models.MedicationType(medType),
		}
		if err := repo.SaveMedication(cmd.Context(), m); err != nil {
			return fmt.Errorf("failed to add medication: %w", err)
		}
		success(cmd, "Added medication")
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s\n", faint.Sprintf("#%d", m.ID), m.Name, m.Dosage)
		return afterWrite(cmd)
	},
}

var addOxygenCmd = &cobra.Command{
	Use:     "oxygen <percent>",
	Aliases: []string{"spo2"},
	Short:   "Add an oxygen saturation reading",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseNumber(args[0], "oxygen level")
		if err != nil {
			return err
		}
		date, err := recordTime()
		if err != nil {
			return err
		}
		o := &models.OxygenReading{Date: date, Level: v}
		if err := repo.SaveOxygen(cmd.Context(), o); err != nil {
			return fmt.Errorf("failed to add oxygen reading: %w", err)
		}
		success(cmd, "Added oxygen reading")
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %.0f%%\n", faint.Sprintf("#%d", o.ID), o.Level)
		return afterWrite(cmd)
	},
}

var addExerciseCmd = &cobra.Command{
	Use:   "exercise <type> <minutes>",
	Short: "Add an exercise session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid minutes: %s", args[1])
		}
		date, err := recordTime()
		if err != nil {
			return err
		}
		e := &models.ExerciseEntry{Date: date, Type: args[0], Minutes: minutes}
		if err := repo.SaveExercise(cmd.Context(), e); err != nil {
			return fmt.Errorf("failed to add exercise: %w", err)
		}
		success(cmd, "Added %s exercise", e.Type)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %d min\n", faint.Sprintf("#%d", e.ID), e.Minutes)
		return afterWrite(cmd)
	},
}

var addWaterCmd = &cobra.Command{
	Use:   "water <ml>",
	Short: "Add water intake",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ml, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount: %s", args[0])
		}
		date, err := recordTime()
		if err != nil {
			return err
		}
		w := &models.WaterEntry{Date: date, Amount: ml}
		if err := repo.SaveWater(cmd.Context(), w); err != nil {
			return fmt.Errorf("failed to add water: %w", err)
		}
		success(cmd, "Added water")
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %d ml\n", faint.Sprintf("#%d", w.ID), w.Amount)
		return afterWrite(cmd)
	},
}

var addFoodCmd = &cobra.Command{
	Use:   "food <name>",
	Short: "Add a food",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := recordTime()
		if err != nil {
			return err
		}
		f := &models.FoodEntry{
			Date:         date,
			Name:         args[0],
			MealCategory: foodMeal,
			Quantity:     foodQty,
			Nutrients:    foodMacros,
		}
		if err := repo.SaveFood(cmd.Context(), f); err != nil {
			return fmt.Errorf("failed to add food: %w", err)
		}
		success(cmd, "Added food")
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %.0f kcal\n", faint.Sprintf("#%d", f.ID), f.Name, f.Calories)
		return afterWrite(cmd)
	},
}

// macroFlags registers the four macro flags writing into n.
func macroFlags(cmd *cobra.Command, n *models.Nutrients) {
	cmd.Flags().Float64Var(&n.Calories, "calories", 0, "kcal")
	cmd.Flags().Float64Var(&n.Protein, "protein", 0, "protein in grams")
	cmd.Flags().Float64Var(&n.Carbs, "carbs", 0, "carbohydrates in grams")
	cmd.Flags().Float64Var(&n.Fat, "fat", 0, "fat in grams")
}

func init() {
	addCmd.PersistentFlags().StringVar(&addAt, "at", "", "timestamp (YYYY-MM-DD HH:MM)")

	addWeightCmd.Flags().BoolVar(&addGoal, "goal", false, "record as the goal weight")

	addMedicationCmd.Flags().StringVar(&medDosage, "dosage", "", "dose, e.g. 10mg")
	addMedicationCmd.Flags().StringVar(&medFrequency, "frequency", "", "how often it is taken")
	addMedicationCmd.Flags().StringVarP(&medType, "type", "t", string(models.MedicationDaily), "daily or exacerbation")

	addFoodCmd.Flags().StringVarP(&foodMeal, "meal", "m", "", "breakfast, lunch, dinner or snack")
	addFoodCmd.Flags().Float64VarP(&foodQty, "qty", "q", 1, "servings")
	macroFlags(addFoodCmd, &foodMacros)

	addCmd.AddCommand(addWeightCmd, addMedicationCmd, addOxygenCmd, addExerciseCmd, addWaterCmd, addFoodCmd)
	rootCmd.AddCommand(addCmd)
}
