package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/marketday/internal/app/models"
	appRepos "github.com/yigit/marketday/internal/app/repositories"
	appServices "github.com/yigit/marketday/internal/app/services"
)

// DemoPassword is the login password of every seeded student
const DemoPassword = "1234"

var demoStudents = []appServices.CreateStudentInput{
	{Name: "Minji", Grade: appModels.Grade3, TicketCount: 12},
	{Name: "Jisoo", Grade: appModels.Grade3, TicketCount: 8},
	{Name: "Bomi", Grade: appModels.Grade4, TicketCount: 15},
	{Name: "Haneul", Grade: appModels.Grade4, TicketCount: 5},
	{Name: "Seojun", Grade: appModels.Grade5, TicketCount: 20},
	{Name: "Yuna", Grade: appModels.Grade6, TicketCount: 10},
}

var demoItems = []appServices.CreateItemInput{
	{Name: "Pencil set", Cost: 3, Quantity: intPtr(20)},
	{Name: "Sticker pack", Cost: 1, Quantity: intPtr(50)},
	{Name: "Eraser", Cost: 1, Quantity: intPtr(30)},
	{Name: "Board game", Cost: 15, Quantity: intPtr(2)},
	{Name: "Lunch with the teacher", Cost: 25, Quantity: intPtr(1)},
}

func intPtr(n int) *int { return &n }

// CreateDemoData fills an empty store with a small roster and catalogue.
// It does nothing once any student exists.
func CreateDemoData(
	ctx context.Context,
	store appRepos.Store,
	students appServices.StudentService,
	items appServices.ItemService,
	lgr zerolog.Logger,
) error {
	var existing int
	err := store.View(ctx, func(ctx context.Context, tx appRepos.Tx) error {
		list, err := tx.Students().List(ctx, nil)
		existing = len(list)
		return err
	})
	if err != nil {
		return fmt.Errorf("error checking existing students: %w", err)
	}
	if existing > 0 {
		lgr.Info().Int("students", existing).Msg("Store already has data, skipping demo seed")
		return nil
	}

	lgr.Info().Msg("Creating demo students and items...")
	var finalErr error

	for _, input := range demoStudents {
		input.Password = DemoPassword
		if _, err := students.CreateStudent(ctx, input); err != nil {
			lgr.Error().Err(err).Str("name", input.Name).Msg("Error creating demo student")
			finalErr = errors.Join(finalErr, err)
		}
	}

	for _, input := range demoItems {
		if _, err := items.CreateItem(ctx, input); err != nil {
			lgr.Error().Err(err).Str("name", input.Name).Msg("Error creating demo item")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if finalErr == nil {
		lgr.Info().Int("students", len(demoStudents)).Int("items", len(demoItems)).Msg("Demo data created")
	}
	return finalErr
}
