package rule_test

import (
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/approveflow/expense-service/internal"
	"github.com/approveflow/expense-service/internal/rule"
)

type mockRuleRepository struct {
	rules  map[int64]*rule.Rule
	nextID int64
}

func newMockRuleRepository() *mockRuleRepository {
	return &mockRuleRepository{rules: make(map[int64]*rule.Rule), nextID: 1}
}

func (m *mockRuleRepository) Create(r *rule.Rule) error {
	r.ID = m.nextID
	m.nextID++
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleRepository) GetByID(companyID, id int64) (*rule.Rule, error) {
	r, ok := m.rules[id]
	if !ok || r.CompanyID != companyID {
		return nil, errors.ErrRuleNotFound
	}
	return r, nil
}

func (m *mockRuleRepository) ListByCompany(companyID int64) ([]*rule.Rule, error) {
	var result []*rule.Rule
	for _, r := range m.rules {
		if r.CompanyID == companyID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRuleRepository) Update(r *rule.Rule) error {
	m.rules[r.ID] = r
	return nil
}

func (m *mockRuleRepository) Delete(companyID, id int64) error {
	delete(m.rules, id)
	return nil
}

var _ = Describe("RuleService", func() {
	var (
		repo    *mockRuleRepository
		service *rule.Service
	)

	BeforeEach(func() {
		repo = newMockRuleRepository()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service = rule.NewService(repo, logger)
	})

	validDTO := func() rule.CreateRuleDTO {
		return rule.CreateRuleDTO{
			Name:     "high value",
			Operator: rule.OperatorOr,
			Conditions: []rule.ConditionDTO{
				{Type: rule.ConditionAmountThreshold, Value: []byte(`"1000"`)},
			},
			Approvers: []rule.ApproverDTO{
				{UserID: 20, Sequence: 1},
				{UserID: 40, Sequence: 2},
			},
		}
	}

	Describe("CreateRule", func() {
		It("creates a rule scoped to the company", func() {
			r, err := service.CreateRule(1, validDTO())

			Expect(err).NotTo(HaveOccurred())
			Expect(r.ID).NotTo(BeZero())
			Expect(r.CompanyID).To(Equal(int64(1)))
			Expect(r.Approvers).To(HaveLen(2))
		})

		It("defaults the operator to OR", func() {
			dto := validDTO()
			dto.Operator = ""

			r, err := service.CreateRule(1, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.Operator).To(Equal(rule.OperatorOr))
		})

		It("rejects a missing name", func() {
			dto := validDTO()
			dto.Name = ""

			_, err := service.CreateRule(1, dto)

			Expect(err).To(HaveOccurred())
		})

		It("rejects decreasing approver sequences", func() {
			dto := validDTO()
			dto.Approvers = []rule.ApproverDTO{
				{UserID: 20, Sequence: 2},
				{UserID: 40, Sequence: 1},
			}

			_, err := service.CreateRule(1, dto)

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("GetRule", func() {
		It("hides rules from other companies", func() {
			r, err := service.CreateRule(1, validDTO())
			Expect(err).NotTo(HaveOccurred())

			_, err = service.GetRule(2, r.ID)

			Expect(err).To(Equal(errors.ErrRuleNotFound))
		})
	})

	Describe("UpdateRule", func() {
		It("patches only the given fields", func() {
			r, err := service.CreateRule(1, validDTO())
			Expect(err).NotTo(HaveOccurred())

			newName := "renamed"
			updated, err := service.UpdateRule(1, r.ID, rule.UpdateRuleDTO{Name: &newName})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("renamed"))
			Expect(updated.Operator).To(Equal(rule.OperatorOr))
			Expect(updated.Approvers).To(HaveLen(2))
		})
	})

	Describe("DeleteRule", func() {
		It("deletes and reports missing rules", func() {
			r, err := service.CreateRule(1, validDTO())
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteRule(1, r.ID)).To(Succeed())
			Expect(service.DeleteRule(1, r.ID)).To(Equal(errors.ErrRuleNotFound))
		})
	})
})
