package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/services"
)

func (a *App) requireProfile() (string, bool) {
	id := a.app.Session.Current()
	if id == nil || a.currentProfile == "" {
		fmt.Println("Login and select a profile first.")
		return "", false
	}
	return id.UserId, true
}

func (a *App) addMedication(ctx context.Context) error {
	actor, ok := a.requireProfile()
	if !ok {
		return nil
	}

	name, err := GetSimpleText(a.reader, "Medication name", os.Stdout)
	if err != nil {
		return err
	}
	doseStr, err := GetSimpleText(a.reader, "Dose (e.g. 500 mg)", os.Stdout)
	if err != nil {
		return err
	}
	amount, unit := parseDose(doseStr)
	timeStrs, err := GetTimesOfDay(a.reader, "Times of day, comma separated (e.g. 08:00, 20:00)", os.Stdout)
	if err != nil {
		return err
	}
	times := make([]models.TimeOfDay, 0, len(timeStrs))
	for _, s := range timeStrs {
		tod, err := models.ParseTimeOfDay(s)
		if err != nil {
			fmt.Println("Bad time of day:", s)
			return nil
		}
		times = append(times, tod)
	}
	daysStr, err := GetSimpleText(a.reader, "Course length in days (0 = open-ended)", os.Stdout)
	if err != nil {
		return err
	}
	days, _ := strconv.Atoi(daysStr)

	med, err := a.app.Medications.Add(ctx, actor, a.currentProfile, services.MedicationInput{
		Name:         name,
		Form:         models.FormTablet,
		Dosage:       models.Dosage{Amount: amount, Unit: unit},
		Times:        times,
		StartDate:    models.Today(),
		DurationDays: days,
		Importance:   models.ImportanceNormal,
		MealRelation: models.MealAny,
	})
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Printf("Added %s (%s)\n", med.Name, med.Id)
	return nil
}

func parseDose(s string) (float64, string) {
	var amount float64
	var unit string
	fmt.Sscanf(s, "%f %s", &amount, &unit)
	return amount, unit
}

func (a *App) listMedications(ctx context.Context) error {
	if _, ok := a.requireProfile(); !ok {
		return nil
	}
	meds, err := a.app.Medications.ListByProfile(ctx, a.currentProfile)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if len(meds) == 0 {
		fmt.Println("No medications. Use 'addmed'.")
		return nil
	}
	for _, m := range meds {
		state := ""
		if !m.Active {
			state = " [paused]"
		}
		fmt.Printf("%s  %s %.0f%s x%d/day%s\n", m.Id, m.Name, m.Dosage.Amount, m.Dosage.Unit, len(m.Times), state)
	}
	return nil
}

// today prints the profile's occurrences for the current day with their
// status, so the user can pick one to mark.
func (a *App) today(ctx context.Context) error {
	if _, ok := a.requireProfile(); !ok {
		return nil
	}
	from := models.Today().At(models.TimeOfDay{}, time.Local)
	list, err := a.app.Repos.Intakes.ListForProfileBetween(ctx, a.currentProfile, from, from.AddDate(0, 0, 1))
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	if len(list) == 0 {
		fmt.Println("Nothing scheduled today.")
		return nil
	}
	for _, i := range list {
		fmt.Printf("%s  %s  %s\n", i.Id, i.PlannedAt.Local().Format("15:04"), i.Status)
	}
	return nil
}

func (a *App) take(ctx context.Context, args []string) error {
	actor, ok := a.requireProfile()
	if !ok {
		return nil
	}
	if len(args) == 0 {
		fmt.Println("Usage: take <intake-id>")
		return nil
	}
	if err := a.app.Medications.MarkTaken(ctx, actor, args[0], time.Now()); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Marked taken.")
	return nil
}

func (a *App) skip(ctx context.Context, args []string) error {
	actor, ok := a.requireProfile()
	if !ok {
		return nil
	}
	if len(args) == 0 {
		fmt.Println("Usage: skip <intake-id>")
		return nil
	}
	if err := a.app.Medications.MarkSkipped(ctx, actor, args[0]); err != nil {
		fmt.Println("Error:", err)
		return err
	}
	fmt.Println("Marked skipped.")
	return nil
}

// adherence prints the last week's adherence per medication.
func (a *App) adherence(ctx context.Context) error {
	if _, ok := a.requireProfile(); !ok {
		return nil
	}
	meds, err := a.app.Medications.ListByProfile(ctx, a.currentProfile)
	if err != nil {
		fmt.Println("Error:", err)
		return err
	}
	to := models.Today()
	from := to.AddDays(-7)
	for i := range meds {
		report, err := a.app.Scheduler.Adherence(ctx, &meds[i], from, to)
		if err != nil {
			fmt.Println("Error:", err)
			return err
		}
		if report.Ratio == nil {
			fmt.Printf("%-20s nothing planned\n", meds[i].Name)
			continue
		}
		fmt.Printf("%-20s %d/%d taken (%.0f%%), %d missed\n",
			meds[i].Name, report.Taken, report.Planned, *report.Ratio*100, report.Missed)
	}
	return nil
}
