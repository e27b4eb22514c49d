package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/phoenixclinic/bookingcore/internal/application/services"
	"github.com/phoenixclinic/bookingcore/internal/domain/entities"
	"github.com/phoenixclinic/bookingcore/internal/domain/providers"
	apperrors "github.com/phoenixclinic/bookingcore/pkg/errors"
)

func agentFixture() (*MockJobQueue, *MockExecutionDriver, *MockCompletionReporter, *services.AgentService) {
	queue := new(MockJobQueue)
	driver := new(MockExecutionDriver)
	reporter := new(MockCompletionReporter)
	agent := services.NewAgentService(queue, driver, reporter, nil, services.AgentConfig{
		MaxAttempts:    5,
		BackoffBase:    1 * time.Second,
		BackoffCap:     30 * time.Second,
		DequeueTimeout: 5 * time.Second,
	})
	return queue, driver, reporter, agent
}

func bookingJob(attempts int) *entities.Job {
	return &entities.Job{
		ID:       "job-1",
		Kind:     entities.JobKindBooking,
		Attempts: attempts,
		Raw:      []byte(`{"id":"job-1"}`),
		Booking: &entities.BookingJob{
			BookingID:  "bk_1",
			OwnerID:    "owner-1",
			ProviderID: "dr-1",
			Date:       "2026-09-10",
			Time:       "09:30",
			RawToken:   "tok-42",
		},
	}
}

func TestAgentService_ProcessJob_Success(t *testing.T) {
	queue, driver, reporter, agent := agentFixture()

	driver.On("BookSlot", mock.Anything, mock.Anything).
		Return(&providers.BookingResult{ExternalRef: "RES-99", EvidencePath: "/e/x.html"}, nil)
	reporter.On("BookingConfirmed", mock.Anything, "bk_1", "RES-99", "/e/x.html").Return(nil)
	queue.On("Ack", mock.Anything, mock.Anything).Return(nil)

	agent.ProcessJob(context.Background(), bookingJob(0))

	driver.AssertExpectations(t)
	reporter.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestAgentService_ProcessJob_TransientFailureRequeues(t *testing.T) {
	queue, driver, _, agent := agentFixture()

	driver.On("BookSlot", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewTransientExternalError("portal timeout", nil))
	queue.On("Requeue", mock.Anything, mock.MatchedBy(func(j *entities.Job) bool {
		return j.Attempts == 1
	}), 1*time.Second).Return(nil)

	agent.ProcessJob(context.Background(), bookingJob(0))

	queue.AssertExpectations(t)
	queue.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}

func TestAgentService_ProcessJob_BackoffDoubles(t *testing.T) {
	queue, driver, _, agent := agentFixture()

	driver.On("BookSlot", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewTransientExternalError("portal timeout", nil))
	// third attempt: 1s * 2^2 = 4s
	queue.On("Requeue", mock.Anything, mock.Anything, 4*time.Second).Return(nil)

	agent.ProcessJob(context.Background(), bookingJob(2))
	queue.AssertExpectations(t)
}

func TestAgentService_ProcessJob_DropAfterMaxAttempts(t *testing.T) {
	queue, driver, reporter, agent := agentFixture()

	driver.On("BookSlot", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewPermanentExternalError("no matching option", nil))
	reporter.On("BookingFailed", mock.Anything, "bk_1", mock.Anything).Return(nil)
	queue.On("Ack", mock.Anything, mock.Anything).Return(nil)

	agent.ProcessJob(context.Background(), bookingJob(4))

	reporter.AssertExpectations(t)
	queue.AssertExpectations(t)
	queue.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything)
}

func TestAgentService_ProcessJob_ValidationNeverRetried(t *testing.T) {
	queue, _, _, agent := agentFixture()

	job := &entities.Job{
		ID:   "job-2",
		Kind: entities.JobKindBooking,
		Raw:  []byte(`{}`),
		// no payload
	}
	queue.On("Ack", mock.Anything, mock.Anything).Return(nil)

	agent.ProcessJob(context.Background(), job)

	queue.AssertExpectations(t)
	queue.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything)
}

func TestAgentService_ProcessJob_FollowUpFailureContained(t *testing.T) {
	queue, driver, reporter, agent := agentFixture()

	job := bookingJob(0)
	job.Booking.FollowUp = &entities.FollowUpReservation{
		ProviderID: "dr-2",
		Date:       "2026-09-17",
		Time:       "10:00",
	}

	driver.On("BookSlot", mock.Anything, mock.Anything).
		Return(&providers.BookingResult{ExternalRef: "RES-99"}, nil)
	reporter.On("BookingConfirmed", mock.Anything, "bk_1", "RES-99", "").Return(nil)
	driver.On("BookFollowUp", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.NewPermanentExternalError("follow-up slot gone", nil))
	queue.On("Ack", mock.Anything, mock.Anything).Return(nil)

	agent.ProcessJob(context.Background(), job)

	// primary is acked despite the follow-up failing
	queue.AssertExpectations(t)
	queue.AssertNotCalled(t, "Requeue", mock.Anything, mock.Anything, mock.Anything)
}

func TestAgentService_ProcessJob_CancellationReports(t *testing.T) {
	queue, driver, reporter, agent := agentFixture()

	job := &entities.Job{
		ID:   "job-3",
		Kind: entities.JobKindCancellation,
		Raw:  []byte(`{}`),
		Cancellation: &entities.CancellationJob{
			BookingID:   "bk_1",
			OwnerID:     "owner-1",
			ExternalRef: "RES-99",
		},
	}
	driver.On("CancelBooking", mock.Anything, job.Cancellation).Return(nil)
	reporter.On("CancellationDone", mock.Anything, "bk_1").Return(nil)
	queue.On("Ack", mock.Anything, mock.Anything).Return(nil)

	agent.ProcessJob(context.Background(), job)

	driver.AssertExpectations(t)
	reporter.AssertExpectations(t)
}

func TestAgentService_ProcessJob_ResourceCreation(t *testing.T) {
	queue, driver, reporter, agent := agentFixture()

	job := &entities.Job{
		ID:   "job-4",
		Kind: entities.JobKindResourceCreation,
		Raw:  []byte(`{}`),
		Resource: &entities.ResourceJob{
			OwnerID:  "owner-1",
			ClinicID: "main",
		},
	}
	driver.On("CreatePatientFile", mock.Anything, job.Resource).Return("F-123", nil)
	reporter.On("PatientFileCreated", mock.Anything, "owner-1", "F-123").Return(nil)
	queue.On("Ack", mock.Anything, mock.Anything).Return(nil)

	agent.ProcessJob(context.Background(), job)

	reporter.AssertExpectations(t)
	queue.AssertExpectations(t)
}
