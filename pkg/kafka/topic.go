package kafka

// TopicPrefix is the prefix of every topic the storefront writes to.
const TopicPrefix = "storefront"

// Topic builds a topic name such as "storefront.cart.synced".
func Topic(domain, action string) string {
	return TopicPrefix + "." + domain + "." + action
}
