package categorizer_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/money-magnet/backend/internal/categorizer"
	"github.com/money-magnet/backend/internal/classifier"
	"github.com/money-magnet/backend/internal/models"
	"github.com/shopspring/decimal"
)

// correct simulates a user assigning a category to a transaction: the
// previous state is captured, the row is updated, and LearnCorrection is
// called with both.
func (suite *TestSuiteStandard) correct(engine *categorizer.Engine, transaction models.Transaction, categoryID uuid.UUID) models.Transaction {
	previous := transaction

	err := models.DB.Model(&transaction).
		Select(models.CategoryUpdateColumns).
		Updates(map[string]any{
			"category_id":         categoryID,
			"category_source":     models.SourceManual,
			"category_suggested":  false,
			"category_confidence": 1.0,
		}).Error
	suite.Require().Nil(err)

	updated := suite.reloadTransaction(transaction.ID)

	err = engine.LearnCorrection(context.Background(), previous, updated)
	suite.Require().Nil(err)

	return updated
}

func (suite *TestSuiteStandard) TestLearnCorrectionCreatesMapping() {
	dining := suite.createTestCategory(models.Category{Name: "Dining"})
	coffee := suite.createTestCategory(models.Category{Name: "Coffee"})

	fake := &fakeClassifier{
		suggestion: &classifier.Suggestion{CategoryID: &dining.ID, Confidence: 0.7},
	}
	engine := categorizer.New(models.DB, fake, categorizer.Config{})

	// The first transaction for the merchant gets an AI suggestion
	transaction := suite.createTestTransaction(models.Transaction{
		Type:     models.TypeExpense,
		Amount:   decimal.NewFromFloat(4.5),
		Merchant: "Starbucks #552",
	})
	suite.Require().Nil(engine.Categorize(context.Background(), &transaction))
	suite.Assert().Equal(1, fake.classifyCalls)
	suite.Assert().Equal(models.SourceAI, transaction.CategorySource)

	// The user overrides the suggestion
	_ = suite.correct(engine, transaction, coffee.ID)

	mapping, err := models.FindMapping(models.DB, "test-user", "STARBUCKS 552", models.TypeExpense)
	suite.Require().Nil(err)
	suite.Require().NotNil(mapping, "Correction did not create a mapping")
	suite.Assert().Equal(coffee.ID, mapping.CategoryID)
	suite.Assert().Equal("Coffee", mapping.CategoryName)
	suite.Assert().Equal(1.0, mapping.Confidence)
	suite.Assert().Equal(models.MatchMerchant, mapping.MatchType)

	// The classifier is told about the correction
	suite.Require().Len(fake.events, 1)
	suite.Assert().Equal("STARBUCKS 552", fake.events[0].Pattern)
	suite.Assert().Equal(coffee.ID.String(), fake.events[0].CategoryID)

	// The next transaction for the merchant is categorized from the
	// mapping without consulting the classifier
	next := suite.createTestTransaction(models.Transaction{
		Type:     models.TypeExpense,
		Amount:   decimal.NewFromFloat(5.2),
		Merchant: "Starbucks #552",
	})
	suite.Require().Nil(engine.Categorize(context.Background(), &next))

	suite.Assert().Equal(1, fake.classifyCalls, "Learned mapping did not short-circuit the classifier")
	suite.Require().NotNil(next.CategoryID)
	suite.Assert().Equal(coffee.ID, *next.CategoryID)
	suite.Assert().Equal(models.SourceLearned, next.CategorySource)
	suite.Assert().Equal(1.0, next.CategoryConfidence)
}

func (suite *TestSuiteStandard) TestLearnCorrectionConfirmation() {
	dining := suite.createTestCategory(models.Category{Name: "Dining"})

	fake := &fakeClassifier{
		suggestion: &classifier.Suggestion{CategoryID: &dining.ID, Confidence: 0.7},
	}
	engine := categorizer.New(models.DB, fake, categorizer.Config{})

	transaction := suite.createTestTransaction(models.Transaction{
		Type:     models.TypeExpense,
		Amount:   decimal.NewFromFloat(23),
		Merchant: "Trattoria Bella",
	})
	suite.Require().Nil(engine.Categorize(context.Background(), &transaction))

	// Confirming the suggested category also creates a mapping
	_ = suite.correct(engine, transaction, dining.ID)

	mapping, err := models.FindMapping(models.DB, "test-user", "TRATTORIA BELLA", models.TypeExpense)
	suite.Require().Nil(err)
	suite.Require().NotNil(mapping)
	suite.Assert().Equal(dining.ID, mapping.CategoryID)
	suite.Assert().Equal(1.0, mapping.Confidence)
}

func (suite *TestSuiteStandard) TestLearnCorrectionReappliesSuggestions() {
	dining := suite.createTestCategory(models.Category{Name: "Dining"})
	coffee := suite.createTestCategory(models.Category{Name: "Coffee"})

	fake := &fakeClassifier{
		suggestion: &classifier.Suggestion{CategoryID: &dining.ID, Confidence: 0.7},
	}
	engine := categorizer.New(models.DB, fake, categorizer.Config{})

	first := suite.createTestTransaction(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks"})
	second := suite.createTestTransaction(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromFloat(5.1), Merchant: "Starbucks"})
	unrelated := suite.createTestTransaction(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromFloat(9), Merchant: "Trattoria Bella"})

	suite.Require().Nil(engine.Categorize(context.Background(), &first))
	suite.Require().Nil(engine.Categorize(context.Background(), &second))
	suite.Require().Nil(engine.Categorize(context.Background(), &unrelated))

	// Correcting the first transaction pulls the other suggestion for the
	// same merchant along
	_ = suite.correct(engine, first, coffee.ID)

	reloaded := suite.reloadTransaction(second.ID)
	suite.Require().NotNil(reloaded.CategoryID)
	suite.Assert().Equal(coffee.ID, *reloaded.CategoryID)
	suite.Assert().Equal(models.SourceLearned, reloaded.CategorySource)
	suite.Assert().True(reloaded.CategorySuggested, "Reapplied corrections stay unconfirmed")

	// Other merchants keep their suggestion
	reloaded = suite.reloadTransaction(unrelated.ID)
	suite.Require().NotNil(reloaded.CategoryID)
	suite.Assert().Equal(dining.ID, *reloaded.CategoryID)
}

func (suite *TestSuiteStandard) TestLearnCorrectionGuards() {
	coffee := suite.createTestCategory(models.Category{Name: "Coffee"})

	fake := &fakeClassifier{}
	engine := categorizer.New(models.DB, fake, categorizer.Config{})

	// A transaction that never carried a suggestion does not create a
	// mapping when it is categorized
	transaction := suite.createTestTransaction(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks"})
	_ = suite.correct(engine, transaction, coffee.ID)

	mapping, err := models.FindMapping(models.DB, "test-user", "STARBUCKS", models.TypeExpense)
	suite.Assert().Nil(err)
	suite.Assert().Nil(mapping)

	// Removing the category is not a correction either
	suggested := suite.createTestTransaction(models.Transaction{
		Type:               models.TypeExpense,
		Amount:             decimal.NewFromFloat(4.5),
		Merchant:           "Peets",
		CategoryID:         &coffee.ID,
		CategorySource:     models.SourceAI,
		CategorySuggested:  true,
		CategoryConfidence: 0.8,
	})
	err = engine.LearnCorrection(context.Background(), suggested, models.Transaction{
		DefaultModel: suggested.DefaultModel,
		UserID:       suggested.UserID,
		Type:         suggested.Type,
		Merchant:     suggested.Merchant,
	})
	suite.Assert().Nil(err)

	mapping, err = models.FindMapping(models.DB, "test-user", "PEETS", models.TypeExpense)
	suite.Assert().Nil(err)
	suite.Assert().Nil(mapping)
}

func (suite *TestSuiteStandard) TestLearnCorrectionNotifyBestEffort() {
	dining := suite.createTestCategory(models.Category{Name: "Dining"})
	coffee := suite.createTestCategory(models.Category{Name: "Coffee"})

	fake := &fakeClassifier{
		suggestion: &classifier.Suggestion{CategoryID: &dining.ID, Confidence: 0.7},
		notifyErr:  classifier.ErrUnavailable,
	}
	engine := categorizer.New(models.DB, fake, categorizer.Config{})

	transaction := suite.createTestTransaction(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks"})
	suite.Require().Nil(engine.Categorize(context.Background(), &transaction))

	// The correction succeeds even when the learning notification fails
	_ = suite.correct(engine, transaction, coffee.ID)

	mapping, err := models.FindMapping(models.DB, "test-user", "STARBUCKS", models.TypeExpense)
	suite.Require().Nil(err)
	suite.Require().NotNil(mapping)
}

func (suite *TestSuiteStandard) TestCorrectMerchant() {
	coffee := suite.createTestCategory(models.Category{Name: "Coffee"})
	dining := suite.createTestCategory(models.Category{Name: "Dining"})

	fake := &fakeClassifier{}
	engine := categorizer.New(models.DB, fake, categorizer.Config{})

	uncategorized := suite.createTestTransaction(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks #552"})
	suggested := suite.createTestTransaction(models.Transaction{
		Type:               models.TypeExpense,
		Amount:             decimal.NewFromFloat(5.1),
		Merchant:           "Starbucks #17",
		CategoryID:         &dining.ID,
		CategorySource:     models.SourceAI,
		CategorySuggested:  true,
		CategoryConfidence: 0.8,
	})

	// A deliberate manual assignment to another category is preserved
	pinned := suite.createTestTransaction(models.Transaction{
		Type:               models.TypeExpense,
		Amount:             decimal.NewFromFloat(6),
		Merchant:           "Starbucks #552",
		CategoryID:         &dining.ID,
		CategorySource:     models.SourceManual,
		CategorySuggested:  false,
		CategoryConfidence: 1.0,
	})

	// Other merchants and transaction types are not touched
	other := suite.createTestTransaction(models.Transaction{Type: models.TypeExpense, Amount: decimal.NewFromFloat(9), Merchant: "Peets"})
	refund := suite.createTestTransaction(models.Transaction{Type: models.TypeIncome, Amount: decimal.NewFromFloat(4.5), Merchant: "Starbucks #552"})

	changed, err := engine.CorrectMerchant(context.Background(), "test-user", "Starbucks #552", coffee.ID, models.TypeExpense)
	suite.Require().Nil(err)
	suite.Assert().Equal(1, changed)

	reloaded := suite.reloadTransaction(uncategorized.ID)
	suite.Require().NotNil(reloaded.CategoryID)
	suite.Assert().Equal(coffee.ID, *reloaded.CategoryID)
	suite.Assert().Equal(models.SourceManual, reloaded.CategorySource)
	suite.Assert().False(reloaded.CategorySuggested)
	suite.Assert().Equal(1.0, reloaded.CategoryConfidence)

	// "Starbucks #17" normalizes to a different pattern
	reloaded = suite.reloadTransaction(suggested.ID)
	suite.Assert().Equal(dining.ID, *reloaded.CategoryID)

	reloaded = suite.reloadTransaction(pinned.ID)
	suite.Assert().Equal(dining.ID, *reloaded.CategoryID, "Manual assignment was overridden")

	reloaded = suite.reloadTransaction(other.ID)
	suite.Assert().Nil(reloaded.CategoryID)

	reloaded = suite.reloadTransaction(refund.ID)
	suite.Assert().Nil(reloaded.CategoryID)

	// The pattern is persisted as a mapping
	mapping, err := models.FindMapping(models.DB, "test-user", "STARBUCKS 552", models.TypeExpense)
	suite.Require().Nil(err)
	suite.Require().NotNil(mapping)
	suite.Assert().Equal(coffee.ID, mapping.CategoryID)
	suite.Assert().Equal(1.0, mapping.Confidence)

	// A repeated run changes nothing
	changed, err = engine.CorrectMerchant(context.Background(), "test-user", "Starbucks #552", coffee.ID, models.TypeExpense)
	suite.Require().Nil(err)
	suite.Assert().Equal(0, changed)
}

func (suite *TestSuiteStandard) TestCorrectMerchantEmptyPattern() {
	coffee := suite.createTestCategory(models.Category{Name: "Coffee"})

	engine := categorizer.New(models.DB, &fakeClassifier{}, categorizer.Config{})

	_, err := engine.CorrectMerchant(context.Background(), "test-user", "  #!? ", coffee.ID, models.TypeExpense)
	suite.Assert().ErrorIs(err, models.ErrMappingPatternEmpty)
}

func (suite *TestSuiteStandard) TestCorrectMerchantUnknownCategory() {
	engine := categorizer.New(models.DB, &fakeClassifier{}, categorizer.Config{})

	_, err := engine.CorrectMerchant(context.Background(), "test-user", "Starbucks", uuid.New(), models.TypeExpense)
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
}
