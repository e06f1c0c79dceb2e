package orders

// TopicOrderEvents carries every order lifecycle event.
const TopicOrderEvents = "shop.order.events"

// Partition key = order id, so events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
