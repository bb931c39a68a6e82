package order_test

import (
	"testing"
	"time"

	"industrium/authority"
	"industrium/bizerror"
	"industrium/domain/order"
	"industrium/domain/status"
	"industrium/event"
	"industrium/persistence"
	"industrium/testinfra"

	. "github.com/onsi/gomega"
)

func setupOrderTestDatabase(t *testing.T) *testinfra.TestDatabase {
	testDatabase := testinfra.StartSqliteTestDatabase("industrium")
	persistence.ActiveDataSourceManager = testDatabase.DS
	err := testDatabase.DS.GormDB(nil).AutoMigrate(&order.Order{}, &event.EventRecord{}).Error
	Expect(err).To(BeNil())
	return testDatabase
}

func TestCreateOrder(t *testing.T) {
	RegisterTestingT(t)

	t.Run("workers must not create orders", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupOrderTestDatabase(t))

		_, err := order.CreateOrder(&order.OrderCreation{Number: "ORD-1", Client: "acme"},
			testinfra.BuildSession(10, authority.RoleWorker))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("status derives from the due date when not given", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupOrderTestDatabase(t))

		managerSession := testinfra.BuildSession(1, authority.RoleManager)
		record, err := order.CreateOrder(&order.OrderCreation{Number: "ORD-1", Client: "acme"}, managerSession)
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.OrderInProgress))

		yesterday := time.Now().AddDate(0, 0, -1)
		record, err = order.CreateOrder(&order.OrderCreation{Number: "ORD-2", Client: "acme", DueDate: &yesterday}, managerSession)
		Expect(err).To(BeNil())
		Expect(record.Status).To(Equal(status.OrderDone))
	})
}

func TestQueryOrders(t *testing.T) {
	RegisterTestingT(t)

	t.Run("filter by status and project", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupOrderTestDatabase(t))

		managerSession := testinfra.BuildSession(1, authority.RoleManager)
		_, err := order.CreateOrder(&order.OrderCreation{Number: "ORD-1", Client: "acme", ProjectID: 100}, managerSession)
		Expect(err).To(BeNil())
		yesterday := time.Now().AddDate(0, 0, -1)
		_, err = order.CreateOrder(&order.OrderCreation{Number: "ORD-2", Client: "acme", DueDate: &yesterday}, managerSession)
		Expect(err).To(BeNil())

		records, err := order.QueryOrders(&order.OrderQuery{Status: status.OrderDone}, managerSession)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))
		Expect(records[0].Number).To(Equal("ORD-2"))

		records, err = order.QueryOrders(&order.OrderQuery{ProjectID: 100}, managerSession)
		Expect(err).To(BeNil())
		Expect(len(records)).To(Equal(1))
		Expect(records[0].Number).To(Equal("ORD-1"))
	})
}

func TestUpdateOrder(t *testing.T) {
	RegisterTestingT(t)

	t.Run("an explicit status overrides derivation", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupOrderTestDatabase(t))

		managerSession := testinfra.BuildSession(1, authority.RoleManager)
		record, err := order.CreateOrder(&order.OrderCreation{Number: "ORD-1", Client: "acme"}, managerSession)
		Expect(err).To(BeNil())

		updated, err := order.UpdateOrder(record.ID, &order.OrderUpdating{Number: "ORD-1", Client: "acme",
			Status: status.OrderNew}, managerSession)
		Expect(err).To(BeNil())
		Expect(updated.Status).To(Equal(status.OrderNew))
	})

	t.Run("workers must not update or delete orders", func(t *testing.T) {
		defer testinfra.StopSqliteTestDatabase(setupOrderTestDatabase(t))

		workerSession := testinfra.BuildSession(10, authority.RoleWorker)
		_, err := order.UpdateOrder(100, &order.OrderUpdating{Number: "ORD-1", Client: "acme"}, workerSession)
		Expect(err).To(Equal(bizerror.ErrForbidden))
		Expect(order.DeleteOrder(100, workerSession)).To(Equal(bizerror.ErrForbidden))
	})
}
