package domain

import (
	"errors"
	"time"
)

// Platform identifica a origem externa dos dados de uma integração
type Platform string

const (
	PlatformShopify         Platform = "shopify"
	PlatformStripe          Platform = "stripe"
	PlatformGoogleAnalytics Platform = "google_analytics"
	PlatformMetaAds         Platform = "meta_ads"
)

// IntegrationStatus representa o estado da conexão de uma integração
type IntegrationStatus string

const (
	IntegrationStatusConnected IntegrationStatus = "CONNECTED"
	IntegrationStatusSyncing   IntegrationStatus = "SYNCING"
	IntegrationStatusError     IntegrationStatus = "ERROR"
)

var (
	// ErrSyncInProgress indica que já existe uma sincronização em andamento para a integração
	ErrSyncInProgress = errors.New("sincronização já em andamento para esta integração")

	// ErrIntegrationNotConnected indica que a integração não está no estado CONNECTED
	ErrIntegrationNotConnected = errors.New("integração não está conectada")

	// ErrIntegrationNotFound indica que a integração não foi encontrada
	ErrIntegrationNotFound = errors.New("integração não encontrada")

	// ErrUnknownPlatform indica que não há adaptador registrado para a plataforma
	ErrUnknownPlatform = errors.New("plataforma desconhecida")
)

// Integration representa uma conta de plataforma externa conectada por um tenant
type Integration struct {
	ID          string
	TenantID    string
	Platform    Platform
	Status      IntegrationStatus
	Credentials []byte // bundle criptografado, decifrado apenas no momento do uso
	Metadata    map[string]any
	LastSyncAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// transições válidas da máquina de estados da conexão:
// CONNECTED -> SYNCING, SYNCING -> CONNECTED, SYNCING -> ERROR, ERROR -> CONNECTED
var validTransitions = map[IntegrationStatus][]IntegrationStatus{
	IntegrationStatusConnected: {IntegrationStatusSyncing},
	IntegrationStatusSyncing:   {IntegrationStatusConnected, IntegrationStatusError},
	IntegrationStatusError:     {IntegrationStatusConnected},
}

// CanTransition verifica se a transição de estado é permitida
func (s IntegrationStatus) CanTransition(to IntegrationStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsSyncable retorna verdadeiro quando a integração pode iniciar uma sincronização
func (i *Integration) IsSyncable() bool {
	return i.Status == IntegrationStatusConnected
}
