package events

// Topic constants for domain events emitted by the platform.
const (
	TopicOrderCreated     = "order.created"
	TopicOrderPaid        = "order.paid"
	TopicOrderCanceled    = "order.canceled"
	TopicOrderCompleted   = "order.completed"
	TopicDonationCreated  = "donation.created"
	TopicDonationApproved = "donation.approved"
	TopicDonationRejected = "donation.rejected"
	TopicCouponIssued     = "coupon.issued"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPaid,
		TopicOrderCanceled,
		TopicOrderCompleted,
		TopicDonationCreated,
		TopicDonationApproved,
		TopicDonationRejected,
		TopicCouponIssued,
	}
}
