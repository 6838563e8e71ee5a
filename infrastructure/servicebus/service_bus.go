package servicebus

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"social-publisher/infrastructure/logger"
)

// NewServiceBus connects to the Azure Service Bus namespace backing the
// scheduled-post queue. Uses the ambient Azure credential chain.
func NewServiceBus(ctx context.Context, namespace string) (*azservicebus.Client, error) {
	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating Azure credential")
		return nil, err
	}
	client, err := azservicebus.NewClient(namespace, credential, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while creating Service Bus client")
		return nil, err
	}
	return client, nil
}
